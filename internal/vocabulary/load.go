package vocabulary

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultSpec is the built-in Indonesian/English vocabulary.
//
// "bayar" and "pay" are treated as expenses. Earlier keyword lists disagreed on
// this, so it is a product decision rather than a parsing rule.
func DefaultSpec() Spec {
	return Spec{
		Version: "2025.06",
		Units: []Unit{
			{Token: "rb", Multiplier: 1_000},
			{Token: "ribu", Multiplier: 1_000},
			{Token: "k", Multiplier: 1_000},
			{Token: "juta", Multiplier: 1_000_000},
			{Token: "jt", Multiplier: 1_000_000},
			{Token: "miliar", Multiplier: 1_000_000_000},
			{Token: "mlr", Multiplier: 1_000_000_000},
			{Token: "m", Multiplier: 1_000_000_000},
		},
		IncomeKeywords: []string{
			"pemasukan", "masuk", "gaji", "terima", "dapat", "bonus", "income", "salary",
		},
		ExpenseKeywords: []string{
			"pengeluaran", "keluar", "beli", "bayar", "belanja", "jajan", "expense", "spend", "pay", "buy",
		},
	}
}

// Default returns the built-in vocabulary
func Default() *Vocabulary {
	v, err := New(DefaultSpec())
	if err != nil {
		panic(fmt.Sprintf("default vocabulary is invalid: %v", err))
	}
	return v
}

// Load reads a YAML vocabulary file. An empty path selects the default.
func Load(path string) (*Vocabulary, error) {
	if path == "" {
		return Default(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vocabulary file: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Decode reads a YAML vocabulary from r
func Decode(r io.Reader) (*Vocabulary, error) {
	var spec Spec
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("failed to decode vocabulary: %w", err)
	}
	return New(spec)
}

// Encode writes v as YAML
func Encode(w io.Writer, v *Vocabulary) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v.Spec()); err != nil {
		return fmt.Errorf("failed to encode vocabulary: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode vocabulary: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
