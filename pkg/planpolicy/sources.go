package planpolicy

import (
	"context"
	"errors"
	"maps"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/quotakit/pkg/config"
)

type inMemSource struct {
	plans map[Plan]Limits
}

// NewInMemSource returns a Source serving a copy of plans.
func NewInMemSource(plans map[Plan]Limits) Source {
	return &inMemSource{plans: maps.Clone(plans)}
}

func (s *inMemSource) Load(context.Context) (map[Plan]Limits, error) {
	return maps.Clone(s.plans), nil
}

// EnvConfig describes the plan table through environment variables. The
// defaults mirror the tiers offered at launch.
type EnvConfig struct {
	FreeDailyLimit    int  `env:"PLAN_FREE_DAILY_BUILDS" envDefault:"3"`
	FreeRetentionDays int  `env:"PLAN_FREE_RETENTION_DAYS" envDefault:"3"`
	FreeBatchBuild    bool `env:"PLAN_FREE_BATCH_BUILD" envDefault:"false"`
	FreeShareDays     int  `env:"PLAN_FREE_SHARE_DAYS" envDefault:"0"`
	ProDailyLimit     int  `env:"PLAN_PRO_DAILY_BUILDS" envDefault:"50"`
	ProRetentionDays  int  `env:"PLAN_PRO_RETENTION_DAYS" envDefault:"30"`
	ProBatchBuild     bool `env:"PLAN_PRO_BATCH_BUILD" envDefault:"true"`
	ProShareDays      int  `env:"PLAN_PRO_SHARE_DAYS" envDefault:"7"`
	TeamDailyLimit    int  `env:"PLAN_TEAM_DAILY_BUILDS" envDefault:"200"`
	TeamRetentionDays int  `env:"PLAN_TEAM_RETENTION_DAYS" envDefault:"90"`
	TeamBatchBuild    bool `env:"PLAN_TEAM_BATCH_BUILD" envDefault:"true"`
	TeamShareDays     int  `env:"PLAN_TEAM_SHARE_DAYS" envDefault:"30"`
}

// Plans converts the flat environment layout into a plan table.
func (c EnvConfig) Plans() map[Plan]Limits {
	return map[Plan]Limits{
		Free: {DailyLimit: c.FreeDailyLimit, RetentionDays: c.FreeRetentionDays, BatchBuildEnabled: c.FreeBatchBuild, ShareDurationDays: c.FreeShareDays},
		Pro:  {DailyLimit: c.ProDailyLimit, RetentionDays: c.ProRetentionDays, BatchBuildEnabled: c.ProBatchBuild, ShareDurationDays: c.ProShareDays},
		Team: {DailyLimit: c.TeamDailyLimit, RetentionDays: c.TeamRetentionDays, BatchBuildEnabled: c.TeamBatchBuild, ShareDurationDays: c.TeamShareDays},
	}
}

type envSource struct{}

// NewEnvSource returns a Source reading EnvConfig through the config loader.
func NewEnvSource() Source {
	return envSource{}
}

func (envSource) Load(context.Context) (map[Plan]Limits, error) {
	var cfg EnvConfig
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	return cfg.Plans(), nil
}

type yamlSource struct {
	path string
}

// NewYAMLSource returns a Source reading a YAML document of the form:
//
//	plans:
//	  free: {daily_limit: 3, retention_days: 3, batch_build: false, share_days: 0}
//	  pro:  {daily_limit: 50, retention_days: 30, batch_build: true, share_days: 7}
func NewYAMLSource(path string) Source {
	return &yamlSource{path: path}
}

type yamlDocument struct {
	Plans map[string]Limits `yaml:"plans"`
}

func (s *yamlSource) Load(context.Context) (map[Plan]Limits, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	return parseYAML(raw)
}

func parseYAML(raw []byte) (map[Plan]Limits, error) {
	var doc yamlDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Join(ErrInvalidPolicy, err)
	}

	plans := make(map[Plan]Limits, len(doc.Plans))
	for name, limits := range doc.Plans {
		plan, err := ParsePlan(name)
		if err != nil {
			return nil, errors.Join(ErrInvalidPolicy, err)
		}
		plans[plan] = limits
	}
	return plans, nil
}
