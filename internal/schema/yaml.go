package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlFile is the on-disk shape of a schema definition, one file per
// named index (cmd/queryd and cmd/ingestd load one schema file and
// register it under the name "default").
type yamlFile struct {
	Fields  []yamlField       `yaml:"fields"`
	Aliases map[string]string `yaml:"aliases"`
}

type yamlField struct {
	Ident     string   `yaml:"ident"`
	ShortName string   `yaml:"shortName"`
	Type      string   `yaml:"type"`
	NoIndex   bool     `yaml:"noIndex"`
	Sortable  bool     `yaml:"sortable"`
	Text      *yamlText   `yaml:"text"`
	Numeric   *yamlNumeric `yaml:"numeric"`
	Tag       *yamlTag     `yaml:"tag"`
	Vector    *yamlVector  `yaml:"vector"`
}

type yamlText struct {
	WithSuffixTrie bool    `yaml:"withSuffixTrie"`
	Weight         float64 `yaml:"weight"`
}

type yamlNumeric struct {
	BlockSize int `yaml:"blockSize"`
}

type yamlTag struct {
	Separator string `yaml:"separator"`
	CaseFold  bool   `yaml:"caseFold"`
}

type yamlVector struct {
	Dim            uint32 `yaml:"dim"`
	Similarity     string `yaml:"similarity"`
	UseHNSW        bool   `yaml:"useHNSW"`
	M              int    `yaml:"m"`
	EfConstruction int    `yaml:"efConstruction"`
}

// LoadYAML reads a schema definition from path and builds a Schema.
func LoadYAML(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema file %s: %w", path, err)
	}
	var file yamlFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing schema file %s: %w", path, err)
	}

	fields := make([]FieldInfo, 0, len(file.Fields))
	for _, f := range file.Fields {
		info, err := f.toFieldInfo()
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Ident, err)
		}
		fields = append(fields, info)
	}
	return NewSchema(fields, file.Aliases), nil
}

func (f yamlField) toFieldInfo() (FieldInfo, error) {
	info := FieldInfo{
		Ident:     f.Ident,
		ShortName: f.ShortName,
	}
	if info.ShortName == "" {
		info.ShortName = info.Ident
	}
	if f.NoIndex {
		info.Flags |= NOINDEX
	}
	if f.Sortable {
		info.Flags |= SORTABLE
	}

	switch f.Type {
	case "TEXT":
		info.Type = TEXT
		if f.Text != nil {
			info.SpecialParams.Text = &TextParams{
				WithSuffixTrie: f.Text.WithSuffixTrie,
				Weight:         f.Text.Weight,
			}
		}
	case "NUMERIC":
		info.Type = NUMERIC
		if f.Numeric != nil {
			info.SpecialParams.Numeric = &NumericParams{BlockSize: f.Numeric.BlockSize}
		}
	case "TAG":
		info.Type = TAG
		if f.Tag != nil {
			sep := ','
			if f.Tag.Separator != "" {
				sep = rune(f.Tag.Separator[0])
			}
			info.SpecialParams.Tag = &TagParams{Separator: sep, CaseFold: f.Tag.CaseFold}
		}
	case "VECTOR":
		info.Type = VECTOR
		if f.Vector == nil {
			return FieldInfo{}, fmt.Errorf("VECTOR field missing vector params")
		}
		sim, err := parseSimilarity(f.Vector.Similarity)
		if err != nil {
			return FieldInfo{}, err
		}
		info.SpecialParams.Vector = &VectorParams{
			Dim:            f.Vector.Dim,
			Similarity:     sim,
			UseHNSW:        f.Vector.UseHNSW,
			M:              f.Vector.M,
			EfConstruction: f.Vector.EfConstruction,
		}
	default:
		return FieldInfo{}, fmt.Errorf("unknown field type %q", f.Type)
	}
	return info, nil
}

func parseSimilarity(s string) (VectorSimilarity, error) {
	switch s {
	case "", "L2":
		return L2, nil
	case "COSINE":
		return Cosine, nil
	case "IP", "INNER_PRODUCT":
		return InnerProduct, nil
	default:
		return 0, fmt.Errorf("unknown vector similarity %q", s)
	}
}
