package tfidf

import (
	"fmt"
	"math"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/termstats/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/termstats/internal/statistics/algorithm"
	"github.com/Adithya-Monish-Kumar-K/termstats/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/termstats/pkg/errors"
)

// Option keys accepted by MergeOptions.
const (
	KeyTF                 = "tf"
	KeyIDF                = "idf"
	KeyNormalization      = "normalization"
	KeyRemoveCommonWords  = "remove_common_words"
	KeyPrecision          = "precision"
	KeyNormalizeWordCount = corpus.OptionNormalizeWordCount
)

// algorithmKeys are the option keys whose values name a weighting function.
// "normalization" is among them although no function family carries that
// name, and it is not the key that turns on word-count normalization
// (KeyNormalizeWordCount is). Both keys are honoured as they are.
var algorithmKeys = map[string]algorithm.Family{
	KeyTF:            algorithm.FamilyTF,
	KeyIDF:           algorithm.FamilyIDF,
	KeyNormalization: algorithm.Family(KeyNormalization),
}

// Options selects the weighting functions and post-processing of a score.
type Options struct {
	TF                 string
	IDF                string
	RemoveCommonWords  bool
	Precision          int
	NormalizeWordCount bool
	// Normalization is set only when a caller passes the "normalization"
	// algorithm key. It is resolved like TF and IDF, and fails.
	Normalization string
}

func DefaultOptions() Options {
	return Options{
		TF:                 "natural",
		IDF:                "logarithm",
		RemoveCommonWords:  true,
		Precision:          4,
		NormalizeWordCount: false,
	}
}

// OptionsFromConfig builds the defaults a service applies to every request.
func OptionsFromConfig(cfg config.ScoringConfig) Options {
	return Options{
		TF:                 cfg.TF,
		IDF:                cfg.IDF,
		RemoveCommonWords:  cfg.RemoveCommonWords,
		Precision:          cfg.Precision,
		NormalizeWordCount: cfg.NormalizeWordCount,
	}
}

// MergeOptions applies caller overrides on top of base; caller keys win.
// Values may be typed (string, bool, int, float64 from JSON) or strings as
// found in query parameters. Unknown keys are ignored.
func MergeOptions(base Options, overrides map[string]any) (Options, error) {
	opts := base
	for key, value := range overrides {
		if family, ok := algorithmKeys[key]; ok {
			name, err := asString(key, value)
			if err != nil {
				return Options{}, err
			}
			switch family {
			case algorithm.FamilyTF:
				opts.TF = name
			case algorithm.FamilyIDF:
				opts.IDF = name
			default:
				opts.Normalization = name
			}
			continue
		}
		switch key {
		case KeyRemoveCommonWords:
			b, err := asBool(key, value)
			if err != nil {
				return Options{}, err
			}
			opts.RemoveCommonWords = b
		case KeyNormalizeWordCount:
			b, err := asBool(key, value)
			if err != nil {
				return Options{}, err
			}
			opts.NormalizeWordCount = b
		case KeyPrecision:
			p, err := asInt(key, value)
			if err != nil {
				return Options{}, err
			}
			opts.Precision = p
		}
	}
	return opts, nil
}

func asString(key string, value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	case bool, int, int64, float64:
		return fmt.Sprint(v), nil
	default:
		return "", apperrors.InvalidOptionError(key, value, "expected an algorithm name")
	}
}

func asBool(key string, value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, apperrors.InvalidOptionError(key, value, "expected a boolean")
		}
		return b, nil
	default:
		return false, apperrors.InvalidOptionError(key, value, "expected a boolean")
	}
}

func asInt(key string, value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, apperrors.InvalidOptionError(key, value, "expected an integer")
		}
		return int(v), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, apperrors.InvalidOptionError(key, value, "expected an integer")
		}
		return n, nil
	default:
		return 0, apperrors.InvalidOptionError(key, value, "expected an integer")
	}
}
