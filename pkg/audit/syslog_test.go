package audit

import (
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"testing"
	"time"
)

// testSocketPath returns a short, unique Unix socket path for testing.
// Unix socket paths have a 108-character limit.
func testSocketPath(suffix string) string {
	return fmt.Sprintf("/tmp/syslog_%d_%s.sock", os.Getpid(), suffix)
}

func TestSyslogEmitter_MessageDelivery(t *testing.T) {
	t.Log("Testing that Emit delivers a valid RFC 5424 message to the socket")

	socketPath := testSocketPath("delivery")
	t.Cleanup(func() { os.Remove(socketPath) })

	// Start mock syslog receiver (datagram socket)
	addr := net.UnixAddr{Name: socketPath, Net: "unixgram"}
	conn, err := net.ListenUnixgram("unixgram", &addr)
	if err != nil {
		t.Fatalf("failed to create mock syslog listener: %v", err)
	}
	defer conn.Close()

	// Create SyslogEmitter pointing at mock socket
	emitter, err := NewSyslogEmitter(SyslogConfig{
		SocketPath: socketPath,
		Hostname:   "test.local",
		AppName:    "lockportd",
	})
	if err != nil {
		t.Fatalf("NewSyslogEmitter failed: %v", err)
	}
	defer emitter.Close()

	t.Log("Emitting pin.accepted event")
	if err := emitter.Emit(NewPinAccepted("usb-0951-1666-001A2B3C")); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}

	// Read from mock socket
	buf := make([]byte, 4096)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("failed to read from mock socket: %v", err)
	}

	got := string(buf[:n])
	t.Logf("Received message: %s", got)

	// Verify RFC 5424 structure
	if !strings.HasPrefix(got, "<134>1") {
		t.Errorf("expected priority <134>1 (Local0+INFO), got prefix: %s", got[:10])
	}
	if !strings.Contains(got, "test.local") {
		t.Error("hostname 'test.local' not found in message")
	}
	if !strings.Contains(got, "lockportd") {
		t.Error("app-name 'lockportd' not found in message")
	}
	if !strings.Contains(got, "pin.accepted") {
		t.Error("event type 'pin.accepted' not found in MSGID")
	}
	if !strings.Contains(got, `[lockport`) {
		t.Error("structured data element 'lockport' not found")
	}
	if !strings.Contains(got, `device="usb-0951-1666-001A2B3C"`) {
		t.Error("device SD param not found")
	}
	if !strings.Contains(got, `audit_id="`) {
		t.Error("audit_id SD param not found")
	}
}

func TestSyslogEmitter_WarningSeverity(t *testing.T) {
	t.Log("Testing that pin.rejected produces WARNING severity with detail params")

	socketPath := testSocketPath("warning")
	t.Cleanup(func() { os.Remove(socketPath) })

	addr := net.UnixAddr{Name: socketPath, Net: "unixgram"}
	conn, err := net.ListenUnixgram("unixgram", &addr)
	if err != nil {
		t.Fatalf("failed to create mock syslog listener: %v", err)
	}
	defer conn.Close()

	emitter, err := NewSyslogEmitter(SyslogConfig{
		SocketPath: socketPath,
		Hostname:   "test.local",
		AppName:    "lockportd",
	})
	if err != nil {
		t.Fatalf("NewSyslogEmitter failed: %v", err)
	}
	defer emitter.Close()

	t.Log("Emitting pin.rejected event")
	if err := emitter.Emit(NewPinRejected("usb-dead", 3)); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}

	buf := make([]byte, 4096)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("failed to read from mock socket: %v", err)
	}

	got := string(buf[:n])
	t.Logf("Received message: %s", got)

	if !strings.HasPrefix(got, "<132>1") {
		t.Errorf("expected priority <132>1 (Local0+WARNING), got prefix: %s", got[:10])
	}
	if !strings.Contains(got, "pin.rejected") {
		t.Error("expected MSGID 'pin.rejected'")
	}
	if !strings.Contains(got, `attempts_remaining="3"`) {
		t.Error("attempts_remaining SD param not found")
	}
}

func TestSyslogEmitter_ConcurrentWrites(t *testing.T) {
	t.Log("Testing that concurrent Emit calls serialize correctly via mutex")

	socketPath := testSocketPath("concurrent")
	t.Cleanup(func() { os.Remove(socketPath) })

	addr := net.UnixAddr{Name: socketPath, Net: "unixgram"}
	conn, err := net.ListenUnixgram("unixgram", &addr)
	if err != nil {
		t.Fatalf("failed to create mock syslog listener: %v", err)
	}
	defer conn.Close()

	emitter, err := NewSyslogEmitter(SyslogConfig{
		SocketPath: socketPath,
		Hostname:   "test.local",
		AppName:    "lockportd",
	})
	if err != nil {
		t.Fatalf("NewSyslogEmitter failed: %v", err)
	}
	defer emitter.Close()

	const numWriters = 10
	var wg sync.WaitGroup
	wg.Add(numWriters)

	t.Logf("Launching %d concurrent writers", numWriters)
	for i := 0; i < numWriters; i++ {
		go func(idx int) {
			defer wg.Done()
			emitter.Emit(NewPinAccepted(fmt.Sprintf("usb-concurrent-%d", idx)))
		}(i)
	}

	wg.Wait()

	// Read all messages from socket
	t.Log("Reading messages from socket")
	received := 0
	buf := make([]byte, 4096)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		n, err := conn.Read(buf)
		if err != nil {
			break
		}
		msg := string(buf[:n])
		if strings.HasPrefix(msg, "<134>1") {
			received++
		}
	}

	t.Logf("Received %d/%d messages", received, numWriters)
	if received != numWriters {
		t.Errorf("expected %d messages, got %d", numWriters, received)
	}
}

func TestSyslogEmitter_UnavailableSocket(t *testing.T) {
	t.Log("Testing graceful handling when syslog socket doesn't exist")

	_, err := NewSyslogEmitter(SyslogConfig{
		SocketPath: "/tmp/nonexistent_syslog_socket_for_test",
	})

	if err == nil {
		t.Fatal("expected error when socket doesn't exist, got nil")
	}

	t.Logf("Got expected error: %v", err)

	if !strings.Contains(err.Error(), "syslog connect") {
		t.Errorf("error should contain 'syslog connect', got: %v", err)
	}
}

func TestSyslogEmitter_StreamFallback(t *testing.T) {
	t.Log("Testing fallback from unixgram to unix stream socket")

	socketPath := testSocketPath("stream")
	t.Cleanup(func() { os.Remove(socketPath) })

	// Create a stream (not datagram) listener to test fallback
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatalf("failed to create stream listener: %v", err)
	}
	defer listener.Close()

	// Accept connections in background
	connCh := make(chan net.Conn, 1)
	go func() {
		c, err := listener.Accept()
		if err == nil {
			connCh <- c
		}
	}()

	emitter, err := NewSyslogEmitter(SyslogConfig{
		SocketPath: socketPath,
		Hostname:   "test.local",
		AppName:    "lockportd",
	})
	if err != nil {
		t.Fatalf("NewSyslogEmitter failed with stream socket: %v", err)
	}
	defer emitter.Close()

	t.Log("Successfully connected via stream socket fallback")

	if err := emitter.Emit(NewDeviceArrival("usb-stream", "E:", "KINGSTON", false)); err != nil {
		t.Fatalf("Emit failed on stream socket: %v", err)
	}

	// Read from the accepted connection
	select {
	case serverConn := <-connCh:
		defer serverConn.Close()
		buf := make([]byte, 4096)
		serverConn.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, err := serverConn.Read(buf)
		if err != nil {
			t.Fatalf("failed to read from stream connection: %v", err)
		}
		got := string(buf[:n])
		t.Logf("Received via stream: %s", got)
		if !strings.Contains(got, "device.arrival") {
			t.Error("expected device.arrival in stream message")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for stream connection")
	}
}

func TestSyslogEmitter_Reconnect(t *testing.T) {
	t.Log("Testing that SyslogEmitter reconnects after socket failure")

	socketPath := testSocketPath("reconnect")
	t.Cleanup(func() { os.Remove(socketPath) })

	// Phase 1: Start listener, create emitter, verify initial write works.
	t.Log("Phase 1: initial write succeeds")
	addr := net.UnixAddr{Name: socketPath, Net: "unixgram"}
	listener1, err := net.ListenUnixgram("unixgram", &addr)
	if err != nil {
		t.Fatalf("failed to create mock syslog listener: %v", err)
	}

	emitter, err := NewSyslogEmitter(SyslogConfig{
		SocketPath: socketPath,
		Hostname:   "test.local",
		AppName:    "lockportd",
	})
	if err != nil {
		listener1.Close()
		t.Fatalf("NewSyslogEmitter failed: %v", err)
	}
	defer emitter.Close()

	if err := emitter.Emit(NewServiceStop("phase1")); err != nil {
		t.Fatalf("Phase 1 write failed: %v", err)
	}

	buf := make([]byte, 4096)
	listener1.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := listener1.Read(buf)
	if err != nil {
		t.Fatalf("Phase 1 read failed: %v", err)
	}
	if !strings.Contains(string(buf[:n]), "phase1") {
		t.Fatalf("Phase 1 message mismatch: %s", buf[:n])
	}
	t.Log("Phase 1 passed: initial write delivered")

	// Phase 2: Kill listener, write should fail (no listener to reconnect to).
	t.Log("Phase 2: write fails after socket death, reconnect fails")
	listener1.Close()
	os.Remove(socketPath)

	err = emitter.Emit(NewServiceStop("phase2"))
	if err == nil {
		t.Fatal("Phase 2: expected error after socket death, got nil")
	}
	t.Logf("Phase 2 got expected error: %v", err)

	// Phase 3: Restart listener on same path, next write should reconnect.
	t.Log("Phase 3: write succeeds after listener restart (reconnection)")
	// Wait for backoff to expire (initial backoff is 100ms).
	time.Sleep(150 * time.Millisecond)

	listener2, err := net.ListenUnixgram("unixgram", &addr)
	if err != nil {
		t.Fatalf("failed to create second listener: %v", err)
	}
	defer listener2.Close()

	if err := emitter.Emit(NewServiceStop("phase3")); err != nil {
		t.Fatalf("Phase 3 write failed (reconnect should have succeeded): %v", err)
	}

	listener2.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err = listener2.Read(buf)
	if err != nil {
		t.Fatalf("Phase 3 read failed: %v", err)
	}
	got := string(buf[:n])
	if !strings.Contains(got, "phase3") {
		t.Fatalf("Phase 3 message mismatch: %s", got)
	}
	t.Log("Phase 3 passed: reconnection successful, message delivered")
}

func TestSyslogEmitter_ReconnectBackoff(t *testing.T) {
	t.Log("Testing that repeated reconnect failures increase backoff (no tight loop)")

	socketPath := testSocketPath("backoff")
	t.Cleanup(func() { os.Remove(socketPath) })

	// Create listener just to bootstrap the emitter, then kill it.
	addr := net.UnixAddr{Name: socketPath, Net: "unixgram"}
	listener, err := net.ListenUnixgram("unixgram", &addr)
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}

	emitter, err := NewSyslogEmitter(SyslogConfig{
		SocketPath: socketPath,
		Hostname:   "test.local",
		AppName:    "lockportd",
	})
	if err != nil {
		listener.Close()
		t.Fatalf("NewSyslogEmitter failed: %v", err)
	}
	defer emitter.Close()

	listener.Close()
	os.Remove(socketPath)

	// First failure: triggers reconnect attempt, sets initial backoff.
	t.Log("First write: triggers reconnect, sets backoff")
	err1 := emitter.Emit(NewPinLockout("usb-backoff", 5*time.Minute))
	if err1 == nil {
		t.Fatal("expected error on first write after socket death")
	}
	t.Logf("First error: %v", err1)

	// Second failure immediately: should hit backoff gate (no reconnect attempt).
	t.Log("Second write immediately: should be gated by backoff")
	err2 := emitter.Emit(NewPinLockout("usb-backoff", 5*time.Minute))
	if err2 == nil {
		t.Fatal("expected error on second write (backoff should block reconnect)")
	}
	if !strings.Contains(err2.Error(), "backoff") {
		t.Errorf("expected backoff error, got: %v", err2)
	}
	t.Logf("Second error (backoff gated): %v", err2)
}

func TestSyslogEmitter_NilReceiverSafety(t *testing.T) {
	t.Log("Verifying nil *SyslogEmitter does not panic on Emit or Close")

	var w *SyslogEmitter

	t.Log("Calling Emit on nil receiver")
	if err := w.Emit(NewPinAccepted("usb-nil")); err != nil {
		t.Errorf("Emit on nil receiver returned error: %v", err)
	}

	t.Log("Calling Close on nil receiver")
	if err := w.Close(); err != nil {
		t.Errorf("Close on nil receiver returned error: %v", err)
	}
}
