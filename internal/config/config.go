// Package config defines the frozen settings bag for the room server and
// the viper-backed loader that populates it from the environment.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Settings is the immutable configuration bag for one process. It is
// built once at startup by Load and then passed by value/pointer to every
// component that needs it; nothing mutates it after Load returns.
type Settings struct {
	AppName          string
	CORSAllowOrigins []string
	WSPath           string

	MaxPlayersPerRoom int

	ServerTickHz     int
	SnapshotHz       int
	InputRateLimitHz int

	PlayerMaxSpeed float64
	PlayerMaxAccel float64
	WorldMinX      float64
	WorldMaxX      float64
	WorldMinZ      float64
	WorldMaxZ      float64

	TreeCenterX         float64
	TreeCenterZ         float64
	TreeInteractRadius  float64
	TreeMaxDecorations  int
	ChatAdminPassword   string
	RoomIdleReapMinutes int

	RedisURL  string
	MySQLDSN  string
	HTTPAddr  string
}

// Load reads configuration from the environment, falling back to the
// defaults below for anything unset. It mirrors the teacher's
// DefaultServerConfig-then-override pattern, but uses viper's
// AutomaticEnv/SetDefault instead of hand-rolled os.Getenv parsing so
// missing or malformed values never crash startup.
func Load() *Settings {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app_name", "treeroom")
	v.SetDefault("cors_allow_origins", "*")
	v.SetDefault("ws_path", "/ws")
	v.SetDefault("http_addr", ":8080")

	v.SetDefault("max_players_per_room", 12)

	v.SetDefault("server_tick_hz", 20)
	v.SetDefault("snapshot_hz", 15)
	v.SetDefault("input_rate_limit_hz", 30)

	v.SetDefault("player_max_speed", 3.5)
	v.SetDefault("player_max_accel", 25.0)
	v.SetDefault("world_min_x", -14.0)
	v.SetDefault("world_max_x", 14.0)
	v.SetDefault("world_min_z", -14.0)
	v.SetDefault("world_max_z", 14.0)

	v.SetDefault("tree_center_x", 0.0)
	v.SetDefault("tree_center_z", 0.0)
	v.SetDefault("tree_interact_radius", 5.0)
	v.SetDefault("tree_max_decorations", 300)
	v.SetDefault("chat_admin_password", "20251225")
	v.SetDefault("room_idle_reap_minutes", 30)

	v.SetDefault("redis_url", "")
	v.SetDefault("mysql_dsn", "")

	origins := splitAndTrim(v.GetString("cors_allow_origins"))
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return &Settings{
		AppName:             v.GetString("app_name"),
		CORSAllowOrigins:    origins,
		WSPath:              v.GetString("ws_path"),
		HTTPAddr:            v.GetString("http_addr"),
		MaxPlayersPerRoom:   v.GetInt("max_players_per_room"),
		ServerTickHz:        v.GetInt("server_tick_hz"),
		SnapshotHz:          v.GetInt("snapshot_hz"),
		InputRateLimitHz:    v.GetInt("input_rate_limit_hz"),
		PlayerMaxSpeed:      v.GetFloat64("player_max_speed"),
		PlayerMaxAccel:      v.GetFloat64("player_max_accel"),
		WorldMinX:           v.GetFloat64("world_min_x"),
		WorldMaxX:           v.GetFloat64("world_max_x"),
		WorldMinZ:           v.GetFloat64("world_min_z"),
		WorldMaxZ:           v.GetFloat64("world_max_z"),
		TreeCenterX:         v.GetFloat64("tree_center_x"),
		TreeCenterZ:         v.GetFloat64("tree_center_z"),
		TreeInteractRadius:  v.GetFloat64("tree_interact_radius"),
		TreeMaxDecorations:  v.GetInt("tree_max_decorations"),
		ChatAdminPassword:   v.GetString("chat_admin_password"),
		RoomIdleReapMinutes: v.GetInt("room_idle_reap_minutes"),
		RedisURL:            v.GetString("redis_url"),
		MySQLDSN:             v.GetString("mysql_dsn"),
	}
}

func splitAndTrim(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
