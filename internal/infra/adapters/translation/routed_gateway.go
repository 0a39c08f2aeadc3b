package translation

import (
	"context"
	"errors"
	"sort"
	"strings"

	"translation-queue/internal/domain/ports/adapter"
)

var _ adapter.TranslationGateway = (*RoutedGateway)(nil)

var errNoGateway = errors.New("no translation gateway configured")

// RoutedGateway picks a provider by target language.
type RoutedGateway struct {
	defaultProvider string
	byProvider      map[string]adapter.TranslationGateway
	langToProvider  map[string]string // base language code -> provider
}

// NewRoutedGateway routes languages listed in routes and sends everything
// else to defaultProvider.
func NewRoutedGateway(
	defaultProvider string,
	byProvider map[string]adapter.TranslationGateway,
	routes map[string]string,
) *RoutedGateway {
	langs := make(map[string]string, len(routes))
	for lang, p := range routes {
		langs[baseCode(lang)] = strings.ToLower(strings.TrimSpace(p))
	}
	return &RoutedGateway{
		defaultProvider: strings.ToLower(defaultProvider),
		byProvider:      byProvider,
		langToProvider:  langs,
	}
}

func (r *RoutedGateway) Name() string { return "routed" }

func (r *RoutedGateway) resolveProvider(target string) string {
	if p := r.langToProvider[baseCode(target)]; p != "" {
		return p
	}
	return r.defaultProvider
}

func (r *RoutedGateway) pick(target string) adapter.TranslationGateway {
	if g := r.byProvider[r.resolveProvider(target)]; g != nil {
		return g
	}
	if g := r.byProvider[r.defaultProvider]; g != nil {
		return g
	}
	// last resort: first available, in a stable order
	names := make([]string, 0, len(r.byProvider))
	for name := range r.byProvider {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if g := r.byProvider[name]; g != nil {
			return g
		}
	}
	return nil
}

func (r *RoutedGateway) Translate(ctx context.Context, req adapter.TranslationRequest) (string, error) {
	g := r.pick(req.TargetLanguage)
	if g == nil {
		return "", errNoGateway
	}
	return g.Translate(ctx, req)
}
