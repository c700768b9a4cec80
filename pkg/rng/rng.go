package rng

// Source - детерминированный линейный конгруэнтный генератор (ЛКГ).
// Используется и генератором подземелий, и генератором лута: при одинаковом
// зерне последовательность чисел всегда одна и та же, что позволяет
// воспроизводить целое подземелье по одному int64.
//
// Формула: seed = (seed*9301 + 49297) % 233280, результат = seed/233280.
type Source struct {
	seed int64
}

const modulus = 233280

// New создает генератор. Отрицательные и большие зерна нормализуются,
// чтобы первая итерация не ушла в отрицательные значения.
func New(seed int64) *Source {
	normalized := ((seed % modulus) + modulus) % modulus
	return &Source{seed: normalized}
}

// Next возвращает следующее псевдослучайное число в [0, 1).
func (s *Source) Next() float64 {
	s.seed = (s.seed*9301 + 49297) % modulus
	return float64(s.seed) / float64(modulus)
}

// IntN возвращает целое в [0, n).
func (s *Source) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	return int(s.Next() * float64(n))
}

// Range возвращает число в [min, max).
func (s *Source) Range(min, max float64) float64 {
	return min + s.Next()*(max-min)
}

// Chance возвращает true с вероятностью p (0..1).
func (s *Source) Chance(p float64) bool {
	return s.Next() < p
}
