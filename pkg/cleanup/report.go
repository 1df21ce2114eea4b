package cleanup

import (
	"os"
	"path/filepath"

	internalUtils "github.com/instkit/instclean/internal/utils"
	"gopkg.in/yaml.v3"
)

// Report is the machine-readable trace of a run, for debugging installs that
// left something behind. The tool itself stays silent on success.
type Report struct {
	Mode      string            `yaml:"mode"`
	Unmounted []string          `yaml:"unmounted,omitempty"`
	Images    map[string]string `yaml:"images,omitempty"`
	TornDown  []string          `yaml:"torn_down,omitempty"`
}

func (s *State) WriteReport() error {
	r := Report{
		Mode:      s.mode.String(),
		Unmounted: s.unmounted,
		Images:    s.Images,
		TornDown:  s.tornDown,
	}
	data, err := yaml.Marshal(r)
	if err != nil {
		return err
	}
	if err := internalUtils.CreateIfNotExists(filepath.Dir(s.ReportPath)); err != nil {
		return err
	}
	return os.WriteFile(s.ReportPath, data, 0644)
}

// ReadReport loads a report written by a previous run.
func ReadReport(path string) (Report, error) {
	var r Report
	data, err := os.ReadFile(path)
	if err != nil {
		return r, err
	}
	err = yaml.Unmarshal(data, &r)
	return r, err
}
