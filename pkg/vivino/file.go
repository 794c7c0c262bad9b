package vivino

import (
	"context"
	"os"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// FileSource reads toplists from a YAML seed file. The file is the manual
// escape hatch when page scraping is blocked or a list needs hand curation.
type FileSource struct {
	path string
}

// NewFileSource creates a FileSource for the given YAML file.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

type seedFile struct {
	Toplists []Toplist `yaml:"toplists"`
}

func (s *FileSource) Toplists(context.Context) ([]Toplist, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, eris.Wrapf(err, "vivino: read seed file %s", s.path)
	}

	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, eris.Wrapf(err, "vivino: parse seed file %s", s.path)
	}

	for i := range seed.Toplists {
		tl := &seed.Toplists[i]
		if tl.ID == "" {
			tl.ID = uuid.NewSHA1(wineNamespace, []byte(tl.URL)).String()
		}
		for j := range tl.Wines {
			if tl.Wines[j].SourceURL == "" {
				tl.Wines[j].SourceURL = tl.URL
			}
		}
	}
	return seed.Toplists, nil
}
