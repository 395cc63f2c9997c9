package entity

import "strings"

// DefaultHazardTerms словарь опасных предметов
var DefaultHazardTerms = []string{
	"knife",
	"gun",
	"weapon",
	"cleaver",
	"meat cleaver",
	"chopper",
	"assault rifle",
	"assault gun",
}

// MatchMode способ сравнения метки со словарём
type MatchMode int

const (
	MatchSubstring MatchMode = iota // метка содержит термин
	MatchExact                      // метка совпадает с термином
)

// HazardLexicon нормализованный словарь опасных терминов
type HazardLexicon struct {
	terms []string
	exact map[string]struct{}
}

// NewHazardLexicon создаёт словарь; пустой список означает словарь по умолчанию
func NewHazardLexicon(terms []string) *HazardLexicon {
	if len(terms) == 0 {
		terms = DefaultHazardTerms
	}
	l := &HazardLexicon{exact: make(map[string]struct{}, len(terms))}
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := l.exact[t]; dup {
			continue
		}
		l.exact[t] = struct{}{}
		l.terms = append(l.terms, t)
	}
	return l
}

// Terms возвращает термины словаря
func (l *HazardLexicon) Terms() []string {
	return append([]string(nil), l.terms...)
}

// Matches проверяет метку без учёта регистра
func (l *HazardLexicon) Matches(label string, mode MatchMode) bool {
	label = strings.ToLower(label)
	if mode == MatchExact {
		_, ok := l.exact[label]
		return ok
	}
	for _, t := range l.terms {
		if strings.Contains(label, t) {
			return true
		}
	}
	return false
}

// HazardMatch опасные метки, найденные одной моделью
type HazardMatch struct {
	Kind   ModelKind `json:"kind"`
	Model  string    `json:"model"`
	Labels []string  `json:"items"`
}
