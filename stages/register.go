package stages

import "github.com/rigup-dev/rigup/pipeline"

// Register adds every bootstrap stage to the registry. Declaration order
// is the tie-break order during resolution, so independent stages run in
// the sequence listed here.
func Register(reg *pipeline.Registry) error {
	all := []pipeline.Stage{
		&Toolchain{},
		&GitInit{},
		&BackendConfig{},
		&SigningKey{},
		&CIPipeline{},
		&SecretSync{},
	}
	for _, s := range all {
		if err := reg.Register(s); err != nil {
			return err
		}
	}
	return reg.Validate()
}
