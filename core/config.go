package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Late policies
const (
	LatePolicyDistinct = "distinct" // late days count toward total_days only
	LatePolicyPresent  = "present"  // late days also count toward the attendance percentage
)

type (
	Config struct {
		Env             string
		Debug           bool
		TestMode        bool
		AppName         string
		Build           string
		SecretKey       string
		WorkDir         string
		FrontendBaseURL string
		RollbarToken    string
		SendgridApiKey  string

		defaultFromEmail string

		Server     ServerConfig
		Database   DatabaseConfig
		Redis      RedisConfig
		Attendance AttendanceConfig
	}

	ServerConfig struct {
		Host            string
		Port            string
		DebugHost       string
		ShutdownTimeout time.Duration
		QueryTimeout    time.Duration
		DisableReqLogs  bool
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RedisConfig struct {
		Enabled  bool
		Addr     string
		Password string
		DB       int
		TTL      time.Duration
	}

	AttendanceConfig struct {
		LatePolicy         string
		DefaulterThreshold float64
		NotifyCron         string
		NotifyWindowDays   int
		NotifyRecipients   string // comma separated RFC 5322 addresses
	}
)

func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: "noreply@localhost"}
	}
	return *addr
}

// Validate normalizes then checks the settings the app cannot run without.
func (c *Config) Validate() error {
	c.Attendance.LatePolicy = CleanString(c.Attendance.LatePolicy, true /* lower */)
	switch c.Attendance.LatePolicy {
	case LatePolicyDistinct, LatePolicyPresent:
	default:
		return errors.Errorf("unknown attendance late policy %q", c.Attendance.LatePolicy)
	}
	if th := c.Attendance.DefaulterThreshold; th < 0 || th > 100 {
		return errors.Errorf("defaulter threshold %v out of range [0, 100]", th)
	}
	if c.Attendance.NotifyWindowDays < 1 {
		return errors.Errorf("notify window must be at least 1 day, got %d", c.Attendance.NotifyWindowDays)
	}
	if _, err := c.Attendance.Recipients(); err != nil {
		return errors.Wrap(err, "parsing notify recipients")
	}
	return nil
}

func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}

func (dc DatabaseConfig) Address() string {
	return net.JoinHostPort(dc.Host, dc.Port)
}

// Recipients parses the defaulter notification recipients.
func (ac AttendanceConfig) Recipients() ([]mail.Address, error) {
	if CleanString(ac.NotifyRecipients) == "" {
		return nil, nil
	}
	list, err := mail.ParseAddressList(ac.NotifyRecipients)
	if err != nil {
		return nil, err
	}
	addrs := make([]mail.Address, 0, len(list))
	for _, a := range list {
		addrs = append(addrs, *a)
	}
	return addrs, nil
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Mahudhurio")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("defaultFromEmail", "Mahudhurio <noreply@localhost>")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.debugHost", "0.0.0.0:4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.queryTimeout", 10*time.Second)
	v.SetDefault("server.disableReqLogs", false)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "mahudhurio")
	v.SetDefault("database.user", "mahudhurio")
	v.SetDefault("database.password", "mahudhurio")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 10*time.Minute)

	v.SetDefault("attendance.latePolicy", LatePolicyDistinct)
	v.SetDefault("attendance.defaulterThreshold", 75.0)
	v.SetDefault("attendance.notifyCron", "")
	v.SetDefault("attendance.notifyWindowDays", 30)
	v.SetDefault("attendance.notifyRecipients", "")
}

// NewConfig loads the app settings from the environment.
// Env vars are prefixed by $ENV: DEV (local; default), TEST, QA, PROD; e.g. DEV_SERVER_PORT=8080
func NewConfig() *Config {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:              env,
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		Build:            v.GetString("build"),
		SecretKey:        v.GetString("secretKey"),
		WorkDir:          wd,
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		defaultFromEmail: v.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Port:            v.GetString("server.port"),
			DebugHost:       v.GetString("server.debugHost"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			QueryTimeout:    v.GetDuration("server.queryTimeout"),
			DisableReqLogs:  v.GetBool("server.disableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			TTL:      v.GetDuration("redis.ttl"),
		},
		Attendance: AttendanceConfig{
			LatePolicy:         CleanString(v.GetString("attendance.latePolicy"), true /* lower */),
			DefaulterThreshold: v.GetFloat64("attendance.defaulterThreshold"),
			NotifyCron:         CleanString(v.GetString("attendance.notifyCron")),
			NotifyWindowDays:   v.GetInt("attendance.notifyWindowDays"),
			NotifyRecipients:   v.GetString("attendance.notifyRecipients"),
		},
	}
	if conf.TestMode {
		conf.Server.DisableReqLogs = true
	}

	if err := conf.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	return conf
}
