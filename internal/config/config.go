package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sky-zhang01/punchpilot-sub001/internal/core/model"
)

// The service is configured entirely through environment variables so it
// can run as a single pod with its secrets injected at deploy time.

type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`
	IsLocalDev bool   `mapstructure:"IS_LOCAL_DEV"`

	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`

	HRAPIURL           string `mapstructure:"HR_API_URL"`
	HRCompany          string `mapstructure:"HR_COMPANY"`
	HRUsername         string `mapstructure:"HR_USERNAME"`
	HRCredentialCipher string `mapstructure:"HR_CREDENTIAL_CIPHER"`
	SecretKey          string `mapstructure:"SECRET_KEY"`

	TickInterval   time.Duration `mapstructure:"TICK_INTERVAL"`
	Countries      string        `mapstructure:"COUNTRIES"`
	CustomHolidays string        `mapstructure:"CUSTOM_HOLIDAYS"`

	CheckinMode        string `mapstructure:"CHECKIN_MODE"`
	CheckinFixedTime   string `mapstructure:"CHECKIN_FIXED_TIME"`
	CheckinWindowStart string `mapstructure:"CHECKIN_WINDOW_START"`
	CheckinWindowEnd   string `mapstructure:"CHECKIN_WINDOW_END"`

	CheckoutMode        string `mapstructure:"CHECKOUT_MODE"`
	CheckoutFixedTime   string `mapstructure:"CHECKOUT_FIXED_TIME"`
	CheckoutWindowStart string `mapstructure:"CHECKOUT_WINDOW_START"`
	CheckoutWindowEnd   string `mapstructure:"CHECKOUT_WINDOW_END"`

	BreaksEnabled   bool   `mapstructure:"BREAKS_ENABLED"`
	BreakStartTime  string `mapstructure:"BREAK_START_TIME"`
	BreakEndTime    string `mapstructure:"BREAK_END_TIME"`

	BrowserURL      string        `mapstructure:"BROWSER_PORTAL_URL"`
	BrowserExecPath string        `mapstructure:"BROWSER_EXEC_PATH"`
	BrowserHeadless bool          `mapstructure:"BROWSER_HEADLESS"`
	BrowserTimeout  time.Duration `mapstructure:"BROWSER_TIMEOUT"`

	AWSRegion   string `mapstructure:"AWS_REGION"`
	AWSEndpoint string `mapstructure:"AWS_ENDPOINT"`
	SESSender   string `mapstructure:"SES_SENDER"`
	SESTo       string `mapstructure:"SES_TO"`

	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (config Config, err error) {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("IS_LOCAL_DEV", false)

	viper.SetDefault("DB_HOST", "db")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "punchpilot_db")

	viper.SetDefault("HR_API_URL", "http://localhost:8081/")
	viper.SetDefault("HR_COMPANY", "")
	viper.SetDefault("HR_USERNAME", "")
	viper.SetDefault("HR_CREDENTIAL_CIPHER", "")
	viper.SetDefault("SECRET_KEY", "")

	viper.SetDefault("TICK_INTERVAL", time.Minute)
	viper.SetDefault("COUNTRIES", "cn")
	viper.SetDefault("CUSTOM_HOLIDAYS", "")

	viper.SetDefault("CHECKIN_MODE", "random")
	viper.SetDefault("CHECKIN_FIXED_TIME", "09:00")
	viper.SetDefault("CHECKIN_WINDOW_START", "08:40")
	viper.SetDefault("CHECKIN_WINDOW_END", "09:00")

	viper.SetDefault("CHECKOUT_MODE", "random")
	viper.SetDefault("CHECKOUT_FIXED_TIME", "18:00")
	viper.SetDefault("CHECKOUT_WINDOW_START", "18:00")
	viper.SetDefault("CHECKOUT_WINDOW_END", "18:30")

	viper.SetDefault("BREAKS_ENABLED", false)
	viper.SetDefault("BREAK_START_TIME", "12:00")
	viper.SetDefault("BREAK_END_TIME", "13:00")

	viper.SetDefault("BROWSER_PORTAL_URL", "")
	viper.SetDefault("BROWSER_EXEC_PATH", "")
	viper.SetDefault("BROWSER_HEADLESS", true)
	viper.SetDefault("BROWSER_TIMEOUT", 3*time.Minute)

	viper.SetDefault("AWS_REGION", "us-east-1")
	viper.SetDefault("AWS_ENDPOINT", "")
	viper.SetDefault("SES_SENDER", "")
	viper.SetDefault("SES_TO", "")

	viper.SetDefault("OTLP_ENDPOINT", "otel-collector:4317")

	viper.AutomaticEnv()

	err = viper.Unmarshal(&config)
	return
}

// ScheduleEntries translates the flat env-var schedule settings into the
// entries the scheduler runs on.
func (c Config) ScheduleEntries() []model.ScheduleEntry {
	entries := []model.ScheduleEntry{
		{
			Action:      model.ActionCheckIn,
			Mode:        model.ScheduleMode(c.CheckinMode),
			FixedTime:   c.CheckinFixedTime,
			WindowStart: c.CheckinWindowStart,
			WindowEnd:   c.CheckinWindowEnd,
			Enabled:     true,
		},
		{
			Action:      model.ActionCheckOut,
			Mode:        model.ScheduleMode(c.CheckoutMode),
			FixedTime:   c.CheckoutFixedTime,
			WindowStart: c.CheckoutWindowStart,
			WindowEnd:   c.CheckoutWindowEnd,
			Enabled:     true,
		},
		{
			Action:    model.ActionBreakStart,
			Mode:      model.ModeFixed,
			FixedTime: c.BreakStartTime,
			Enabled:   c.BreaksEnabled,
		},
		{
			Action:    model.ActionBreakEnd,
			Mode:      model.ModeFixed,
			FixedTime: c.BreakEndTime,
			Enabled:   c.BreaksEnabled,
		},
	}
	return entries
}

// CountryList splits the COUNTRIES setting into lowercase codes.
func (c Config) CountryList() []string {
	var out []string
	for _, part := range strings.Split(c.Countries, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// CustomHolidayList splits the CUSTOM_HOLIDAYS setting into yyyy-mm-dd dates.
func (c Config) CustomHolidayList() []string {
	var out []string
	for _, part := range strings.Split(c.CustomHolidays, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
