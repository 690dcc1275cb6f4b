package commsutil

import (
	"reflect"
	"testing"
	"time"

	commsserver "github.com/nats-io/nats-server/v2/server"
	comms "github.com/nats-io/nats.go"
)

const connectTestPrefix = "commsutil:connect_test"

func TestConnectOptions_Defaults(t *testing.T) {
	tests := []struct {
		name string
		in   ConnectOptions
		want ConnectOptions
	}{
		{"zero", ConnectOptions{}, ConnectOptions{Timeout: 10 * time.Second, ReconnectWait: 2 * time.Second, MaxReconnects: 60}},
		{"custom", ConnectOptions{Timeout: time.Second, ReconnectWait: time.Millisecond, MaxReconnects: 3},
			ConnectOptions{Timeout: time.Second, ReconnectWait: time.Millisecond, MaxReconnects: 3}},
		{"forever", ConnectOptions{MaxReconnects: -1}, ConnectOptions{Timeout: 10 * time.Second, ReconnectWait: 2 * time.Second, MaxReconnects: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.withDefaults(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("%s - withDefaults() = %+v, want %+v", connectTestPrefix, got, tt.want)
			}
		})
	}
}

func TestNatsOptions(t *testing.T) {
	var o comms.Options
	for _, opt := range natsOptions("da", ConnectOptions{Timeout: 3 * time.Second, ReconnectWait: time.Second, MaxReconnects: 7}) {
		if err := opt(&o); err != nil {
			t.Fatalf("%s - applying option: %v", connectTestPrefix, err)
		}
	}
	if o.Name != "da" || o.Timeout != 3*time.Second || o.ReconnectWait != time.Second || o.MaxReconnect != 7 {
		t.Errorf("%s - unexpected options name=%q timeout=%v wait=%v max=%d", connectTestPrefix,
			o.Name, o.Timeout, o.ReconnectWait, o.MaxReconnect)
	}
	if o.AsyncErrorCB == nil || o.ClosedCB == nil || o.ReconnectedCB == nil || o.DisconnectedErrCB == nil {
		t.Errorf("%s - expected every connection handler to be set", connectTestPrefix)
	}
}

func TestConnect_InvalidURL(t *testing.T) {
	nc, err := ConnectWithOptions("invalid://not-a-nats-server", "test-client", ConnectOptions{Timeout: time.Second})
	if err == nil {
		nc.Close()
		t.Fatalf("%s - expected error for invalid URL", connectTestPrefix)
	}
	if nc != nil {
		t.Errorf("%s - expected nil connection on error", connectTestPrefix)
	}
}

func TestConnect_EmbeddedServer(t *testing.T) {
	ns, err := commsserver.NewServer(&commsserver.Options{
		Host:   "127.0.0.1",
		Port:   commsserver.RANDOM_PORT,
		NoLog:  true,
		NoSigs: true,
	})
	if err != nil {
		t.Fatalf("%s - failed to create server: %v", connectTestPrefix, err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		t.Fatalf("%s - server failed to start", connectTestPrefix)
	}
	defer func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	}()

	nc, err := Connect(ns.ClientURL(), "da-test")
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", connectTestPrefix, err)
	}
	defer nc.Close()

	if !nc.IsConnected() {
		t.Errorf("%s - expected connected client", connectTestPrefix)
	}
	if nc.Opts.Name != "da-test" {
		t.Errorf("%s - client name = %q, want da-test", connectTestPrefix, nc.Opts.Name)
	}
}

func TestNatsOptions_OnClosed(t *testing.T) {
	var o comms.Options
	called := 0
	for _, opt := range natsOptions("da", ConnectOptions{OnClosed: func() { called++ }}.withDefaults()) {
		if err := opt(&o); err != nil {
			t.Fatalf("%s - applying option: %v", connectTestPrefix, err)
		}
	}
	o.ClosedCB(nil)
	if called != 1 {
		t.Errorf("%s - OnClosed called %d times, want 1", connectTestPrefix, called)
	}

	// Without OnClosed the handler only logs.
	var plain comms.Options
	for _, opt := range natsOptions("da", ConnectOptions{}.withDefaults()) {
		if err := opt(&plain); err != nil {
			t.Fatalf("%s - applying option: %v", connectTestPrefix, err)
		}
	}
	plain.ClosedCB(nil)
}
