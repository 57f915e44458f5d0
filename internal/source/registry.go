package source

import (
	"fmt"
	"sort"
	"strings"

	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/domain"
	errs "github.com/NastyaGoryachaya/btc-price-aggregator/internal/errors"
)

// Extractor - чистая функция: тело ответа -> цена
type Extractor func(body []byte) (domain.Price, error)

// Descriptor - неизменяемое описание источника
type Descriptor struct {
	ID       domain.SourceID
	Endpoint string
	Extract  Extractor
}

// Registry - каталог источников. После создания только читается,
// поэтому безопасен для конкурентного использования.
type Registry struct {
	byID   map[domain.SourceID]Descriptor
	sorted []domain.SourceID
}

// NewRegistry - строит реестр; повторяющийся или пустой id считается ошибкой программиста.
func NewRegistry(descriptors ...Descriptor) (*Registry, error) {
	r := &Registry{byID: make(map[domain.SourceID]Descriptor, len(descriptors))}
	for _, d := range descriptors {
		id := Normalize(d.ID)
		if id == "" {
			return nil, fmt.Errorf("register source: %w", errs.ErrEmptySource)
		}
		if d.Extract == nil {
			return nil, fmt.Errorf("register source %q: nil extractor", id)
		}
		if _, dup := r.byID[id]; dup {
			return nil, fmt.Errorf("register source %q: duplicate id", id)
		}
		d.ID = id
		r.byID[id] = d
		r.sorted = append(r.sorted, id)
	}
	sort.Strings(r.sorted)
	return r, nil
}

// Default - реестр со всеми встроенными источниками
func Default() *Registry {
	r, err := NewRegistry(Catalogue()...)
	if err != nil {
		panic(err)
	}
	return r
}

// WithEndpoints - копия реестра с подменёнными адресами (конфиг, тесты).
// Неизвестные id игнорируются.
func (r *Registry) WithEndpoints(endpoints map[string]string) *Registry {
	out := &Registry{
		byID:   make(map[domain.SourceID]Descriptor, len(r.byID)),
		sorted: append([]domain.SourceID(nil), r.sorted...),
	}
	for id, d := range r.byID {
		out.byID[id] = d
	}
	for id, url := range endpoints {
		id = Normalize(id)
		d, ok := out.byID[id]
		if !ok || strings.TrimSpace(url) == "" {
			continue
		}
		d.Endpoint = strings.TrimSpace(url)
		out.byID[id] = d
	}
	return out
}

// Normalize - обрезает пробелы и приводит id к нижнему регистру
func Normalize(id string) domain.SourceID {
	return strings.ToLower(strings.TrimSpace(id))
}

// Lookup - ищет источник без учёта регистра
func (r *Registry) Lookup(id string) (Descriptor, error) {
	norm := Normalize(id)
	if norm == "" {
		return Descriptor{}, errs.ErrEmptySource
	}
	d, ok := r.byID[norm]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s", errs.ErrUnsupportedSource, norm)
	}
	return d, nil
}

// Has - поддерживается ли источник
func (r *Registry) Has(id string) bool {
	_, err := r.Lookup(id)
	return err == nil
}

// ListSorted - id всех источников по возрастанию. Возвращается копия.
func (r *Registry) ListSorted() []domain.SourceID {
	return append([]domain.SourceID(nil), r.sorted...)
}

// Len - количество источников
func (r *Registry) Len() int { return len(r.sorted) }
