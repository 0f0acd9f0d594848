package oracle

import (
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// NormalizeExample is a few-shot example folded into the title prompt.
type NormalizeExample struct {
	Input  string `yaml:"input"`
	Output string `yaml:"output"`
}

// Ruleset holds the category policy and normalization rules that are folded
// into the oracle prompts. Externalized so the policy can change without a
// rebuild.
type Ruleset struct {
	AllowedCategories []string           `yaml:"allowed_categories"`
	ExclusionRules    []string           `yaml:"exclusion_rules"`
	NormalizeRules    []string           `yaml:"normalize_rules"`
	NormalizeExamples []NormalizeExample `yaml:"normalize_examples"`
}

// DefaultRuleset returns the built-in policy, used when no rules file is
// present.
func DefaultRuleset() Ruleset {
	return Ruleset{
		AllowedCategories: []string{
			"CPUs",
			"CPU Coolers",
			"GPUs",
			"RAM (DDR4 or newer)",
			"Motherboards",
			"Storage drives (HDDs, SSDs)",
			"Power supply units (PSUs)",
			"Cases",
		},
		ExclusionRules: []string{
			"Filter out any components that are older than 2015.",
			"Filter out any computer memory that is DDR3 or older.",
			"Filter out any laptop components.",
			"Filter out any non-computer components.",
			"Filter out any accessories (cables, adapters, peripherals, etc.).",
			"Filter out any add-on or adapter cards.",
		},
		NormalizeRules: []string{
			"Keep any technical details that are part of the product name itself, such as the amount of storage (e.g., \"1 TB\") or memory size (e.g., \"16 GB\").",
			"For computer memory (RAM) products, include the type (e.g., DDR4, DDR3), speed (e.g., 3200MHz), and form factor (e.g., DIMM, SO-DIMM) in the product name. Do not include the speed or channel (e.g. 8GB x 2).",
			"For power supply units (PSUs) and storage drives, only include the wattage or storage capacity. Do not include the specific brand name or model number.",
			"For liquid coolers, only include the radiator size (e.g., 240mm, 360mm). Do not include the brand name or model number.",
		},
		NormalizeExamples: []NormalizeExample{
			{Input: "RTX 4500 AD102 24GB GDDR6", Output: "RTX 4500"},
			{Input: "Crucial X10 6TB Portable SSD(CT6000X10SSD9)", Output: "6TB Portable SSD"},
			{Input: "ASUS ROG RYUJIN III 360 ARGB EXTREME - AIO (WHITE)", Output: "360mm AIO Liquid Cooler"},
		},
	}
}

// LoadRuleset reads the YAML rules file, falling back to the defaults when
// the file does not exist.
func LoadRuleset(path string) (Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultRuleset(), nil
		}
		return Ruleset{}, err
	}

	var rs Ruleset
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return Ruleset{}, err
	}
	return rs, nil
}

func bulleted(items []string) string {
	var b strings.Builder
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteString("\n")
	}
	return b.String()
}
