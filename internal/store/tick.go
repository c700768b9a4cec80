package store

import (
	"time"

	"voxel-server/internal/domain"
)

// ProjectileHit - событие столкновения снаряда, отдается оркестратору
// для рассылки и (при Killed) запуска каскада смерти.
type ProjectileHit struct {
	ProjectileID string             `json:"projectileId"`
	OwnerID      string             `json:"ownerId"`
	TargetKind   string             `json:"targetKind"` // enemy | player
	TargetID     string             `json:"targetId"`
	Damage       int                `json:"damage"`
	Enemy        *EnemyHealthResult `json:"enemy,omitempty"`
	PlayerHealth int                `json:"playerHealth,omitempty"`
	Position     domain.Vec3        `json:"position"`
}

// UpdateEntities - единственный периодический (не событийный) путь мутации:
// продвигает снаряды на direction*speed*dt, проверяет сферические коллизии
// и выкидывает снаряды по попаданию или по истечении 5 секунд жизни.
func (s *Store) UpdateEntities(dt float64) []ProjectileHit {
	var hits []ProjectileHit
	now := time.Now()

	for id, p := range s.projectiles {
		if now.Sub(p.Created) > domain.ProjectileMaxLifetime {
			delete(s.projectiles, id)
			continue
		}

		p.Position = p.Position.Add(p.Direction.Scale(p.Speed * dt))

		hit := s.checkCollision(p)
		if hit != nil {
			hits = append(hits, *hit)
			delete(s.projectiles, id)
		}
	}

	return hits
}

func (s *Store) checkCollision(p *domain.Projectile) *ProjectileHit {
	// Снаряды всех владельцев проверяются по врагам (кроме самого владельца).
	for _, e := range s.enemies {
		if e.ID == p.OwnerID || e.Health <= 0 {
			continue
		}
		if p.Position.DistanceTo(e.Position) < p.Radius+e.Radius {
			result, err := s.UpdateEnemyHealth(e.ID, -p.Damage)
			if err != nil {
				return nil
			}
			return &ProjectileHit{
				ProjectileID: p.ID,
				OwnerID:      p.OwnerID,
				TargetKind:   "enemy",
				TargetID:     e.ID,
				Damage:       p.Damage,
				Enemy:        result,
				Position:     p.Position,
			}
		}
	}

	// Вражеские снаряды дополнительно проверяются по игрокам.
	if _, ownerIsEnemy := s.enemies[p.OwnerID]; ownerIsEnemy {
		for _, pl := range s.players {
			if pl.Health <= 0 {
				continue
			}
			if p.Position.DistanceTo(pl.Position) < p.Radius+playerRadius {
				health, err := s.UpdatePlayerHealth(pl.ID, -p.Damage)
				if err != nil {
					return nil
				}
				return &ProjectileHit{
					ProjectileID: p.ID,
					OwnerID:      p.OwnerID,
					TargetKind:   "player",
					TargetID:     pl.ID,
					Damage:       p.Damage,
					PlayerHealth: health,
					Position:     p.Position,
				}
			}
		}
	}

	return nil
}
