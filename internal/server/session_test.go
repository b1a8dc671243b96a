package server

import (
	"bytes"
	"context"
	"io"
	"net"
	"sync"

	"github.com/charmbracelet/ssh"
)

type fakeContext struct {
	context.Context
	mu     sync.Mutex
	values map[any]any
	remote net.Addr
}

func (f *fakeContext) Lock()                         { f.mu.Lock() }
func (f *fakeContext) Unlock()                       { f.mu.Unlock() }
func (f *fakeContext) User() string                  { return "guest" }
func (f *fakeContext) SessionID() string             { return "server-test-session" }
func (f *fakeContext) ClientVersion() string         { return "ssh-test-client" }
func (f *fakeContext) ServerVersion() string         { return "ssh-test-server" }
func (f *fakeContext) RemoteAddr() net.Addr          { return f.remote }
func (f *fakeContext) LocalAddr() net.Addr           { return &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 2222} }
func (f *fakeContext) Permissions() *ssh.Permissions { return &ssh.Permissions{} }
func (f *fakeContext) SetValue(key, value interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
}
func (f *fakeContext) Value(key interface{}) interface{} {
	f.mu.Lock()
	v, ok := f.values[key]
	f.mu.Unlock()
	if ok {
		return v
	}
	return f.Context.Value(key)
}

// fakeSession implements the parts of ssh.Session the server touches. The
// embedded interface is nil, so any other call panics.
type fakeSession struct {
	ssh.Session
	ctx    *fakeContext
	user   string
	remote net.Addr
	pty    ssh.Pty
	hasPty bool

	mu     sync.Mutex
	writes bytes.Buffer
}

func newFakeSession(ctx context.Context, remote net.Addr) *fakeSession {
	return &fakeSession{
		ctx:    &fakeContext{Context: ctx, values: map[any]any{}, remote: remote},
		user:   "guest",
		remote: remote,
		pty:    ssh.Pty{Term: "xterm-256color", Window: ssh.Window{Width: 100, Height: 30}},
		hasPty: true,
	}
}

func tcpAddr(ip string) net.Addr {
	return &net.TCPAddr{IP: net.ParseIP(ip), Port: 50022}
}

func (f *fakeSession) User() string             { return f.user }
func (f *fakeSession) RemoteAddr() net.Addr     { return f.remote }
func (f *fakeSession) Context() ssh.Context     { return f.ctx }
func (f *fakeSession) Read([]byte) (int, error) { return 0, io.EOF }
func (f *fakeSession) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes.Write(p)
}
func (f *fakeSession) Pty() (ssh.Pty, <-chan ssh.Window, bool) {
	return f.pty, nil, f.hasPty
}

func (f *fakeSession) output() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes.String()
}
