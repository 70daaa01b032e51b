package config

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

// DBConfig takes a full DSN, or host, user and name from which one is built.
type DBConfig struct {
	DSN    string `envconfig:"RENTMARKET_DB_DSN"`
	Driver string `envconfig:"RENTMARKET_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"RENTMARKET_DB_HOST"`
	Port     int    `envconfig:"RENTMARKET_DB_PORT" default:"5432"`
	User     string `envconfig:"RENTMARKET_DB_USER"`
	Password string `envconfig:"RENTMARKET_DB_PASSWORD"`
	Name     string `envconfig:"RENTMARKET_DB_NAME"`
	SSLMode  string `envconfig:"RENTMARKET_DB_SSLMODE" default:"disable"`

	MaxOpenConns       int           `envconfig:"RENTMARKET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns       int           `envconfig:"RENTMARKET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime    time.Duration `envconfig:"RENTMARKET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime    time.Duration `envconfig:"RENTMARKET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQueryThreshold time.Duration `envconfig:"RENTMARKET_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

// resolveDSN fills DSN from the individual parts when it was not given.
func (db *DBConfig) resolveDSN() error {
	if db.DSN != "" {
		return nil
	}

	var missing []string
	for env, value := range map[string]string{EnvDBHost: db.Host, EnvDBUser: db.User, EnvDBName: db.Name} {
		if value == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   url.User(db.User),
		Host:   net.JoinHostPort(db.Host, strconv.Itoa(db.Port)),
		Path:   db.Name,
	}
	if db.Password != "" {
		u.User = url.UserPassword(db.User, db.Password)
	}
	if db.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {db.SSLMode}}.Encode()
	}
	db.DSN = u.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"RENTMARKET_REDIS_URL" required:"true"`
	Address      string        `envconfig:"RENTMARKET_REDIS_ADDR"`
	Password     string        `envconfig:"RENTMARKET_REDIS_PASSWORD"`
	DB           int           `envconfig:"RENTMARKET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RENTMARKET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RENTMARKET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RENTMARKET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RENTMARKET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RENTMARKET_REDIS_WRITE_TIMEOUT" default:"5s"`
}
