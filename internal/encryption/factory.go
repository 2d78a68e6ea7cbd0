package encryption

import (
	"fmt"

	"evidence-vault/internal/config"
	"evidence-vault/internal/evidence"
)

// NewSealerFromConfig returns the export sealer selected by cfg.Sealing.
// A nil sealer with a nil error means exports are left unsealed.
func NewSealerFromConfig(cfg config.ExportConfig) (evidence.Sealer, error) {
	switch cfg.Sealing {
	case "none", "":
		return nil, nil
	case "age":
		if cfg.RecipientsFile == "" {
			return nil, fmt.Errorf("recipients_file required for age sealing")
		}
		s, err := LoadAgeSealer(cfg.RecipientsFile)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "test":
		return NewTestSealer(), nil
	default:
		return nil, fmt.Errorf("unknown sealing type: %q", cfg.Sealing)
	}
}
