package session

import (
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

func createTestSession(t *testing.T, id string) (*Session, net.Conn) {
	t.Helper()
	conn, peer := net.Pipe()
	t.Cleanup(func() {
		conn.Close()
		peer.Close()
	})
	return New(conn, RoleServer, newOperator(), WithID(id), WithLogger(quietLogger())), peer
}

func TestManager_Add(t *testing.T) {
	manager := NewManager()

	t.Run("add with custom ID", func(t *testing.T) {
		s, _ := createTestSession(t, "test-session")
		if err := manager.Add(s); err != nil {
			t.Fatalf("Failed to add session: %v", err)
		}
		if manager.Count() != 1 {
			t.Errorf("Expected 1 session, got %d", manager.Count())
		}
	})

	t.Run("add with generated ID", func(t *testing.T) {
		s, _ := createTestSession(t, "")
		if err := manager.Add(s); err != nil {
			t.Fatalf("Failed to add session: %v", err)
		}
		if len(s.ID()) != 36 {
			t.Errorf("Expected a UUID session ID, got %q", s.ID())
		}
	})

	t.Run("duplicate session ID", func(t *testing.T) {
		s, _ := createTestSession(t, "test-session")
		if err := manager.Add(s); err != ErrSessionAlreadyExists {
			t.Errorf("Expected ErrSessionAlreadyExists, got %v", err)
		}
	})

	t.Run("case-insensitive duplicate check", func(t *testing.T) {
		s, _ := createTestSession(t, "TEST-SESSION")
		if err := manager.Add(s); err != ErrSessionAlreadyExists {
			t.Errorf("Expected ErrSessionAlreadyExists for case variant, got %v", err)
		}
	})

	t.Run("nil session", func(t *testing.T) {
		if err := manager.Add(nil); err != ErrInvalidSessionID {
			t.Errorf("Expected ErrInvalidSessionID, got %v", err)
		}
	})
}

func TestManager_Get(t *testing.T) {
	manager := NewManager()
	created, _ := createTestSession(t, "get-test")
	manager.Add(created)

	t.Run("get existing session", func(t *testing.T) {
		s, err := manager.Get("get-test")
		if err != nil {
			t.Fatalf("Failed to get session: %v", err)
		}
		if s != created {
			t.Error("Expected the registered session")
		}
	})

	t.Run("case-insensitive get", func(t *testing.T) {
		s, err := manager.Get("GET-TEST")
		if err != nil {
			t.Fatalf("Failed to get session with different case: %v", err)
		}
		if s != created {
			t.Errorf("Expected same session regardless of case")
		}
	})

	t.Run("get non-existent session", func(t *testing.T) {
		_, err := manager.Get("non-existent")
		if err != ErrSessionNotFound {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})
}

func TestManager_Remove(t *testing.T) {
	manager := NewManager()
	s, peer := createTestSession(t, "remove-test")
	manager.Add(s)

	if err := manager.Remove("remove-test"); err != nil {
		t.Fatalf("Failed to remove session: %v", err)
	}
	if _, err := manager.Get("remove-test"); err != ErrSessionNotFound {
		t.Error("Expected session to be removed")
	}
	if err := manager.Remove("remove-test"); err != ErrSessionNotFound {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}

	// Remove does not close the connection.
	go peer.Write([]byte("x"))
	buf := make([]byte, 1)
	s.conn.(net.Conn).SetReadDeadline(time.Now().Add(time.Second))
	if _, err := s.conn.Read(buf); err != nil {
		t.Errorf("Expected connection to stay open, got %v", err)
	}
}

func TestManager_List(t *testing.T) {
	manager := NewManager()
	for i := 0; i < 3; i++ {
		s, _ := createTestSession(t, fmt.Sprintf("list-%d", i))
		s.createdAt = time.Unix(int64(100-i), 0)
		manager.Add(s)
	}

	infos := manager.List()
	if len(infos) != 3 {
		t.Fatalf("Expected 3 sessions, got %d", len(infos))
	}
	want := []string{"list-2", "list-1", "list-0"}
	for i, info := range infos {
		if info.ID != want[i] {
			t.Errorf("Expected %s at position %d, got %s", want[i], i, info.ID)
		}
		if info.Mode != "chat" || info.Role != "server" {
			t.Errorf("Unexpected snapshot %+v", info)
		}
	}
}

func TestManager_Close(t *testing.T) {
	manager := NewManager()
	s, peer := createTestSession(t, "close-test")
	manager.Add(s)

	if err := manager.Close("close-test"); err != nil {
		t.Fatalf("Failed to close session: %v", err)
	}
	if _, err := peer.Write([]byte("x")); err == nil {
		t.Error("Expected the peer to see a closed connection")
	}
	if manager.Count() != 1 {
		t.Error("Close must leave the session registered")
	}
	if err := manager.Close("missing"); err != ErrSessionNotFound {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_CloseAll(t *testing.T) {
	manager := NewManager()
	var peers []net.Conn
	for i := 0; i < 4; i++ {
		s, peer := createTestSession(t, fmt.Sprintf("all-%d", i))
		manager.Add(s)
		peers = append(peers, peer)
	}

	if n := manager.CloseAll(); n != 4 {
		t.Errorf("Expected 4 sessions closed, got %d", n)
	}
	for i, peer := range peers {
		if _, err := peer.Write([]byte("x")); err == nil {
			t.Errorf("Expected session %d to be closed", i)
		}
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	manager := NewManager()

	var wg sync.WaitGroup
	errs := make(chan error, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			conn, _ := net.Pipe()
			s := New(conn, RoleServer, newOperator(), WithID(fmt.Sprintf("c-%d", id%50)))
			if err := manager.Add(s); err != nil && err != ErrSessionAlreadyExists {
				errs <- err
			}
			manager.List()
			manager.Get(strings.ToUpper(s.ID()))
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Unexpected error during concurrent access: %v", err)
	}
	if manager.Count() != 50 {
		t.Errorf("Expected 50 sessions, got %d", manager.Count())
	}
	manager.CloseAll()
}
