package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env            string        `mapstructure:"ENV"`
	Port           string        `mapstructure:"PORT"`
	AdminKey       string        `mapstructure:"ADMIN_KEY"`
	CORSAllowed    string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`

	OutputDir string `mapstructure:"OUTPUT_DIR"`
	TempDir   string `mapstructure:"TEMP_DIR"`

	TableauServerURL  string `mapstructure:"TABLEAU_SERVER_URL"`
	TableauAPIVersion string `mapstructure:"TABLEAU_API_VERSION"`
	TableauTokenName  string `mapstructure:"TABLEAU_TOKEN_NAME"`
	TableauTokenValue string `mapstructure:"TABLEAU_TOKEN_VALUE"`
	TableauSite       string `mapstructure:"TABLEAU_SITE_CONTENT_URL"`
	TableauWorkbook   string `mapstructure:"TABLEAU_WORKBOOK_NAME"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("REQUEST_TIMEOUT", "120s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("OUTPUT_DIR", "data/output")
	v.SetDefault("TEMP_DIR", "data/temp")
	v.SetDefault("TABLEAU_SERVER_URL", "https://prod-uk-a.online.tableau.com")
	v.SetDefault("TABLEAU_API_VERSION", "3.16")
	v.SetDefault("TABLEAU_WORKBOOK_NAME", "8 Department wise tables for chats & calls")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DepartmentProfile is the static per-department configuration consumed by
// the repetition detector, latency filter, segmenter and handling-ratio
// calculator. An empty SkillFilter matches everything.
type DepartmentProfile struct {
	Name        string   `json:"name"`
	ViewName    string   `json:"view_name"`
	SkillFilter []string `json:"skill_filter"`
	OutputStem  string   `json:"output_stem"`
}

var departments = []DepartmentProfile{
	{Name: "applicants", ViewName: "Applicants", SkillFilter: []string{"FILIPINA_OUTSIDE"}, OutputStem: "applicants"},
	{Name: "doctors", ViewName: "Doctors", SkillFilter: []string{"GPT_Doctors"}, OutputStem: "doctors"},
	{Name: "mv_resolvers", ViewName: "MV Resolvers", SkillFilter: []string{"gpt_mv_resolvers"}, OutputStem: "mv_resolvers"},
	{Name: "cc_sales", ViewName: "Sales CC", SkillFilter: []string{"GPT_CC_PROSPECT"}, OutputStem: "cc_sales"},
}

func Departments() []DepartmentProfile {
	out := make([]DepartmentProfile, len(departments))
	copy(out, departments)
	return out
}

// ErrUnknownDepartment marks a department name outside the static profile
// table.
var ErrUnknownDepartment = errors.New("unknown department")

func DepartmentByName(name string) (DepartmentProfile, error) {
	for _, d := range departments {
		if d.Name == name {
			return d, nil
		}
	}
	return DepartmentProfile{}, fmt.Errorf("%w: %s", ErrUnknownDepartment, name)
}
