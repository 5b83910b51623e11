package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Chat struct {
		URL      string
		Username string
		Password string
		Prefix   string
		// Rooms joined automatically at startup, comma separated "name" or "name:password".
		AutoJoin []string
	}
	Reconnect struct {
		// Delay after a normal close, which the remote service uses to signal
		// a competing session replacing this one.
		NormalClose time.Duration
		ErrorClose  time.Duration
		DialTimeout time.Duration
	}
	Sessions struct {
		SweepInterval time.Duration
		IdleDefault   time.Duration
		AdminIdle     time.Duration
	}
	AI struct {
		BaseURL  string
		APIKey   string
		Cooldown time.Duration
	}
	Server struct {
		Port string
	}
	Store struct {
		Path string
	}
}

func Load() Config {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("chat.prefix", "!")
	v.SetDefault("reconnect.normal_close_seconds", 10)
	v.SetDefault("reconnect.error_close_seconds", 5)
	v.SetDefault("reconnect.dial_timeout_seconds", 10)
	v.SetDefault("sessions.sweep_interval_seconds", 10)
	v.SetDefault("sessions.idle_default_seconds", 90)
	v.SetDefault("sessions.admin_idle_seconds", 30)
	v.SetDefault("ai.cooldown_seconds", 15)
	v.SetDefault("server.port", 8080)
	v.SetDefault("store.path", "roombot.db")

	// Map envs
	v.BindEnv("chat.url", "CHAT_WS_URL")
	v.BindEnv("chat.username", "CHAT_USERNAME")
	v.BindEnv("chat.password", "CHAT_PASSWORD")
	v.BindEnv("chat.prefix", "CHAT_PREFIX")
	v.BindEnv("chat.auto_join", "CHAT_AUTO_JOIN")

	v.BindEnv("reconnect.normal_close_seconds", "RECONNECT_NORMAL_CLOSE_SECONDS")
	v.BindEnv("reconnect.error_close_seconds", "RECONNECT_ERROR_CLOSE_SECONDS")
	v.BindEnv("reconnect.dial_timeout_seconds", "RECONNECT_DIAL_TIMEOUT_SECONDS")

	v.BindEnv("sessions.sweep_interval_seconds", "SESSIONS_SWEEP_INTERVAL_SECONDS")
	v.BindEnv("sessions.idle_default_seconds", "SESSIONS_IDLE_DEFAULT_SECONDS")
	v.BindEnv("sessions.admin_idle_seconds", "SESSIONS_ADMIN_IDLE_SECONDS")

	v.BindEnv("ai.base_url", "AI_BASE_URL")
	v.BindEnv("ai.api_key", "AI_API_KEY")
	v.BindEnv("ai.cooldown_seconds", "AI_COOLDOWN_SECONDS")

	v.BindEnv("server.port", "PORT")
	v.BindEnv("store.path", "STORE_PATH")

	var c Config
	c.Chat.URL = v.GetString("chat.url")
	c.Chat.Username = v.GetString("chat.username")
	c.Chat.Password = v.GetString("chat.password")
	c.Chat.Prefix = v.GetString("chat.prefix")
	c.Chat.AutoJoin = splitList(v.GetString("chat.auto_join"))

	c.Reconnect.NormalClose = seconds(v, "reconnect.normal_close_seconds")
	c.Reconnect.ErrorClose = seconds(v, "reconnect.error_close_seconds")
	c.Reconnect.DialTimeout = seconds(v, "reconnect.dial_timeout_seconds")

	c.Sessions.SweepInterval = seconds(v, "sessions.sweep_interval_seconds")
	c.Sessions.IdleDefault = seconds(v, "sessions.idle_default_seconds")
	c.Sessions.AdminIdle = seconds(v, "sessions.admin_idle_seconds")

	c.AI.BaseURL = v.GetString("ai.base_url")
	c.AI.APIKey = v.GetString("ai.api_key")
	c.AI.Cooldown = seconds(v, "ai.cooldown_seconds")

	c.Server.Port = v.GetString("server.port")
	c.Store.Path = v.GetString("store.path")

	log.Printf("config loaded: ws=%s user=%s prefix=%q rooms=%d", c.Chat.URL, c.Chat.Username, c.Chat.Prefix, len(c.Chat.AutoJoin))
	return c
}

func seconds(v *viper.Viper, key string) time.Duration {
	return time.Duration(v.GetInt(key)) * time.Second
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
