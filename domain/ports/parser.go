package ports

import "github.com/reglet-dev/reglet-script/domain/entities"

// ManifestParser parses raw YAML bytes into a ScriptManifest.
type ManifestParser interface {
	// Parse unmarshals YAML bytes into a ScriptManifest struct.
	Parse(data []byte) (*entities.ScriptManifest, error)
}
