package locale

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/smallbiznis/punchline/internal/config"
	"go.uber.org/zap"
)

var ErrLanguageUnknown = errors.New("language_unknown")

// Service serves translated strings, one JSON document per language.
// Bundles are loaded once at startup; the funnel config decides which
// languages are enabled and which one is the fallback.
type Service struct {
	log         *zap.Logger
	defaultLang string
	bundles     map[string]json.RawMessage
}

// NewService loads every enabled language bundle from dir.
func NewService(log *zap.Logger, funnel *config.FunnelConfigHolder, dir string) (*Service, error) {
	cfg := funnel.Get()

	bundles := make(map[string]json.RawMessage, len(cfg.Languages))
	for _, lang := range cfg.Languages {
		lang = normalize(lang)
		path := filepath.Join(dir, lang+".json")
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", lang, err)
		}
		if !json.Valid(raw) {
			return nil, fmt.Errorf("locale %s: invalid JSON", lang)
		}
		bundles[lang] = json.RawMessage(raw)
	}

	defaultLang := normalize(cfg.DefaultLanguage)
	if _, ok := bundles[defaultLang]; !ok {
		return nil, fmt.Errorf("default language %q has no bundle", defaultLang)
	}

	log.Named("locale").Info("loaded locale bundles",
		zap.Int("languages", len(bundles)),
		zap.String("default", defaultLang),
	)

	return &Service{
		log:         log.Named("locale"),
		defaultLang: defaultLang,
		bundles:     bundles,
	}, nil
}

// Bundle returns the JSON document for lang, falling back to the default
// language for unknown or region-qualified tags ("de-AT" -> "de").
func (s *Service) Bundle(lang string) (json.RawMessage, string) {
	lang = normalize(lang)
	if bundle, ok := s.bundles[lang]; ok {
		return bundle, lang
	}
	if idx := strings.Index(lang, "-"); idx > 0 {
		base := lang[:idx]
		if bundle, ok := s.bundles[base]; ok {
			return bundle, base
		}
	}
	return s.bundles[s.defaultLang], s.defaultLang
}

// Languages lists the loaded language codes.
func (s *Service) Languages() []string {
	langs := make([]string, 0, len(s.bundles))
	for lang := range s.bundles {
		langs = append(langs, lang)
	}
	return langs
}

func (s *Service) DefaultLanguage() string {
	return s.defaultLang
}

func normalize(lang string) string {
	return strings.ToLower(strings.TrimSpace(lang))
}
