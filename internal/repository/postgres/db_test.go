package postgres

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestPoolDefaults(t *testing.T) {
	tests := []struct {
		name string
		in   Pool
		want Pool
	}{
		{"zero", Pool{}, DefaultPool()},
		{
			"botmatch workers",
			Pool{MaxOpen: 3},
			Pool{MaxOpen: 3, MaxIdle: 3, MaxLifetime: 30 * time.Minute, PingTimeout: 5 * time.Second},
		},
		{
			"explicit",
			Pool{MaxOpen: 50, MaxIdle: 10, MaxLifetime: time.Minute, PingTimeout: time.Second},
			Pool{MaxOpen: 50, MaxIdle: 10, MaxLifetime: time.Minute, PingTimeout: time.Second},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.withDefaults(); got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestConnectUnreachable(t *testing.T) {
	// Nothing listens on port 1; the ping must fail rather than hang.
	url := "postgres://fleet@127.0.0.1:1/fleetbot?sslmode=disable&connect_timeout=1"
	start := time.Now()
	db, err := Connect(context.Background(), url, Pool{PingTimeout: 2 * time.Second})
	if err == nil {
		db.Close()
		t.Fatal("expected ping error")
	}
	if !strings.Contains(err.Error(), "postgres ping") {
		t.Errorf("error: got %v, want a ping failure", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("connect took %v", elapsed)
	}
}
