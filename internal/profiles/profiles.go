// Package profiles consolidates the presentation variants of the
// dashboard. The pipeline is single and parameterized; everything
// language-specific (quadrant labels, threshold defaults, tier cut
// points, persona narratives) lives in a profile.
package profiles

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"olist-dashboard/internal/models"
)

type Profile struct {
	Name     string `yaml:"name"`
	Language string `yaml:"language"`

	// QuadrantLabels maps the stable quadrant keys to display names.
	QuadrantLabels map[models.Quadrant]string `yaml:"quadrant_labels"`

	// Tiers configure the RFM grading: quantile cut points and tier
	// names, base tier first.
	Tiers Tiers `yaml:"tiers"`

	// DefaultThresholds seed the dashboard sliders. A zero monetary
	// default means "population median".
	DefaultThresholds models.Thresholds `yaml:"default_thresholds"`

	Personas []Persona `yaml:"personas"`
}

type Tiers struct {
	Cuts  []float64 `yaml:"cuts"`
	Names []string  `yaml:"names"`
}

// Persona is the narrative block the dashboard shows for one quadrant.
type Persona struct {
	Quadrant models.Quadrant `yaml:"quadrant" json:"quadrant"`
	Title    string          `yaml:"title" json:"title"`
	Analysis string          `yaml:"analysis" json:"analysis"`
	Guide    string          `yaml:"guide" json:"guide"`
}

// Label returns the display name for a quadrant, falling back to the
// stable key when the profile has no entry.
func (p *Profile) Label(q models.Quadrant) string {
	if label, ok := p.QuadrantLabels[q]; ok {
		return label
	}
	return string(q)
}

func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile name cannot be empty")
	}
	for _, q := range models.Quadrants {
		if p.QuadrantLabels[q] == "" {
			return fmt.Errorf("profile %q is missing a label for quadrant %q", p.Name, q)
		}
	}
	if len(p.Tiers.Names) != len(p.Tiers.Cuts)+1 {
		return fmt.Errorf("profile %q needs %d tier names for %d cuts, got %d",
			p.Name, len(p.Tiers.Cuts)+1, len(p.Tiers.Cuts), len(p.Tiers.Names))
	}
	prev := 0.0
	for _, c := range p.Tiers.Cuts {
		if c <= prev || c >= 1 {
			return fmt.Errorf("profile %q has non-ascending tier cuts %v", p.Name, p.Tiers.Cuts)
		}
		prev = c
	}
	if p.DefaultThresholds.Satisfaction < 1 || p.DefaultThresholds.Satisfaction > 5 {
		return fmt.Errorf("profile %q satisfaction default must be within the 1-5 review scale", p.Name)
	}
	return nil
}

// English is the default profile.
func English() *Profile {
	return &Profile{
		Name:     "english",
		Language: "en",
		QuadrantLabels: map[models.Quadrant]string{
			models.QuadrantCore:      "Core Buyers",
			models.QuadrantUpset:     "Upset High-spenders",
			models.QuadrantEfficient: "Efficient Buyers",
			models.QuadrantAtRisk:    "At-risk Starters",
		},
		Tiers: Tiers{
			Cuts:  []float64{0.5, 0.8},
			Names: []string{"Regular", "Loyal", "VIP"},
		},
		DefaultThresholds: models.Thresholds{Monetary: 0, Satisfaction: 3.5},
		Personas: []Persona{
			{
				Quadrant: models.QuadrantCore,
				Title:    "Core Buyers",
				Analysis: "The marketplace's key asset, spending above the threshold and enjoying reliable delivery.",
				Guide:    "Expectations are high, so even a small delay is costly. Prioritize premium handling.",
			},
			{
				Quadrant: models.QuadrantUpset,
				Title:    "Upset High-spenders",
				Analysis: "High spenders soured by delivery problems, often buying from unstable sellers.",
				Guide:    "Set delivery estimates conservatively and reach out before they complain.",
			},
			{
				Quadrant: models.QuadrantEfficient,
				Title:    "Efficient Buyers",
				Analysis: "Value-focused buyers of everyday goods, satisfied with logistics turnaround.",
				Guide:    "Shipping-cost sensitive; surface all-in prices that include delivery.",
			},
			{
				Quadrant: models.QuadrantAtRisk,
				Title:    "At-risk Starters",
				Analysis: "Low spend and low satisfaction; many bought from early-stage sellers or weak logistics regions.",
				Guide:    "Negative reviews hit hardest early on, so sellers should start in well-served regions.",
			},
		},
	}
}

// Korean carries the Korean-language labels and narratives.
func Korean() *Profile {
	return &Profile{
		Name:     "korean",
		Language: "ko",
		QuadrantLabels: map[models.Quadrant]string{
			models.QuadrantCore:      "우상단 (VIP)",
			models.QuadrantUpset:     "좌상단 (위험 고객)",
			models.QuadrantEfficient: "우하단 (잠재 충성군)",
			models.QuadrantAtRisk:    "좌하단 (이탈 우려)",
		},
		Tiers: Tiers{
			Cuts:  []float64{0.5, 0.8},
			Names: []string{"Regular", "Loyal", "VIP"},
		},
		DefaultThresholds: models.Thresholds{Monetary: 0, Satisfaction: 3.5},
		Personas: []Persona{
			{
				Quadrant: models.QuadrantCore,
				Title:    "VIP 파워 쇼퍼",
				Analysis: "핵심 자산입니다. 안정적인 배송 서비스를 경험 중입니다.",
				Guide:    "기대치가 매우 높으므로 사소한 지연도 치명적입니다. 프리미엄 포장을 권장합니다.",
			},
			{
				Quadrant: models.QuadrantUpset,
				Title:    "고가치 이탈 위험군",
				Analysis: "배송 지연으로 화가 난 고액 결제자입니다.",
				Guide:    "배송 예정일을 보수적으로 설정하고 선제적인 CS 대응이 필수입니다.",
			},
			{
				Quadrant: models.QuadrantEfficient,
				Title:    "가성비 중시형",
				Analysis: "생필품 등을 구매하며 물류 회전율에 만족하는 실속형 그룹입니다.",
				Guide:    "배송비에 매우 민감하므로 배송비를 포함한 가격 노출 전략이 유효합니다.",
			},
			{
				Quadrant: models.QuadrantAtRisk,
				Title:    "저가치 불만족군",
				Analysis: "초기 단계 판매자나 물류 취약 지역 고객이 다수 포함됩니다.",
				Guide:    "판매 초기에는 부정 리뷰가 치명적이므로 안정적인 지역 위주로 시작하세요.",
			},
		},
	}
}

var builtins = map[string]func() *Profile{
	"english": English,
	"korean":  Korean,
}

// Load resolves the active profile: a YAML file when given, otherwise
// the named built-in.
func Load(name, file string) (*Profile, error) {
	if file != "" {
		return LoadFile(file)
	}
	builder, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("unknown profile %q", name)
	}
	return builder(), nil
}

// LoadFile reads a profile from YAML, layered over the English
// defaults so partial files only need to say what differs.
func LoadFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile file: %w", err)
	}

	profile := English()
	if err := yaml.Unmarshal(data, profile); err != nil {
		return nil, fmt.Errorf("parse profile file %s: %w", path, err)
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return profile, nil
}
