package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/dmitrijs2005/turing/internal/logging"
	"github.com/dmitrijs2005/turing/internal/protocol"
	"github.com/dmitrijs2005/turing/internal/server/chataddr"
	"github.com/dmitrijs2005/turing/internal/server/documents"
	"github.com/dmitrijs2005/turing/internal/server/models"
	"github.com/dmitrijs2005/turing/internal/server/sections"
	"github.com/dmitrijs2005/turing/internal/server/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServices(t *testing.T, names ...string) *Services {
	t.Helper()
	fs, err := sections.NewFSStore(t.TempDir())
	require.NoError(t, err)
	registry := users.NewService()
	for _, n := range names {
		require.NoError(t, registry.Register(n, []byte("pw")))
	}
	return &Services{
		Users:     registry,
		Documents: documents.NewService(fs),
		Addresses: chataddr.NewAllocator(nil),
	}
}

type testClient struct {
	t       *testing.T
	conn    *protocol.Conn
	raw     net.Conn
	handler *Handler
	done    chan struct{}
}

func connect(t *testing.T, svc *Services) *testClient {
	t.Helper()
	srv, cli := net.Pipe()
	h := NewHandler(srv, srv.RemoteAddr(), svc, logging.Nop{})
	done := make(chan struct{})
	go func() {
		h.Serve(context.Background())
		close(done)
	}()
	t.Cleanup(func() {
		cli.Close()
		<-done
	})
	return &testClient{t: t, conn: protocol.NewConn(cli), raw: cli, handler: h, done: done}
}

func (c *testClient) send(line string) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteLine(line))
}

func (c *testClient) status() int {
	c.t.Helper()
	n, err := c.conn.ReadStatus()
	require.NoError(c.t, err)
	return n
}

func (c *testClient) line() string {
	c.t.Helper()
	l, err := c.conn.ReadLine()
	require.NoError(c.t, err)
	return l
}

func (c *testClient) do(line string) int {
	c.t.Helper()
	c.send(line)
	return c.status()
}

func (c *testClient) section() string {
	c.t.Helper()
	var buf bytes.Buffer
	_, err := c.conn.ReceiveSection(&buf)
	require.NoError(c.t, err)
	return buf.String()
}

// login logs in and swallows a pending share notice.
func (c *testClient) login(user string) {
	c.t.Helper()
	st := c.do("login " + user + " pw")
	if st == protocol.StatusShareNotice {
		st = c.status()
	}
	require.Equal(c.t, protocol.StatusOK, st)
}

func (c *testClient) waitClosed() {
	c.t.Helper()
	<-c.done
}

func TestSession_CollaborationScenario(t *testing.T) {
	svc := newServices(t, "alice", "bob")
	alice := connect(t, svc)
	bob := connect(t, svc)

	alice.login("alice")
	require.Equal(t, protocol.StatusOK, alice.do("create report 3"))
	bob.login("bob")

	// bob has no access yet: zero candidates and nothing else follows
	require.Equal(t, 0, bob.do("edit report 2"))

	require.Equal(t, protocol.StatusOK, alice.do("share report bob"))

	bob.send("edit report 2")
	require.Equal(t, protocol.StatusShareNotice, bob.status())
	require.Equal(t, 1, bob.status())
	require.Equal(t, "alice", bob.line())
	bob.send("0")
	require.Equal(t, 3, bob.status())
	assert.Equal(t, "", bob.section())
	assert.Equal(t, "239.0.0.0", bob.line())
	assert.Equal(t, StateEditing, bob.handler.State())

	alice.send("edit report 2")
	require.Equal(t, 1, alice.status())
	require.Equal(t, "alice", alice.line())
	alice.send("0")
	assert.Equal(t, protocol.EditLocked, alice.status())

	require.Equal(t, 3, bob.do("end-edit"))
	body := "revised section two\n"
	require.NoError(t, bob.conn.SendSection(strings.NewReader(body), int64(len(body))))

	// the next reply proves the upload was processed
	require.Equal(t, 1, bob.do("list"))
	assert.Equal(t, "Document: report", bob.line())
	assert.Equal(t, "Author:    alice", bob.line())
	assert.Equal(t, "Coauthors: [bob]", bob.line())
	assert.Equal(t, "#Sections: 3", bob.line())
	assert.Equal(t, "Sections being edited: { }", bob.line())

	doc, ok := svc.Documents.Get(models.Handle{Name: "report", Owner: "alice"})
	require.True(t, ok)
	assert.Equal(t, []bool{false, false, false}, doc.Locks)

	alice.send("show report 2")
	require.Equal(t, 1, alice.status())
	require.Equal(t, "alice", alice.line())
	alice.send("0")
	require.Equal(t, 3, alice.status())
	assert.Equal(t, body, alice.section())

	// the chat address stays with the document
	require.Equal(t, 1, alice.do("edit report 1"))
	alice.line()
	alice.send("0")
	require.Equal(t, 3, alice.status())
	alice.section()
	assert.Equal(t, "239.0.0.0", alice.line())
}

func TestSession_StateViolations(t *testing.T) {
	svc := newServices(t, "alice")
	c := connect(t, svc)

	assert.Equal(t, protocol.StatusBadState, c.do("create report 1"))
	assert.Equal(t, protocol.StatusBadState, c.do("list"))
	assert.Equal(t, protocol.StatusBadState, c.do("end-edit"))
	assert.Equal(t, protocol.StatusMalformed, c.do("dance"))
	assert.Equal(t, protocol.StatusMalformed, c.do("login alice"))

	c.login("alice")
	assert.Equal(t, protocol.StatusBadState, c.do("login alice pw"))
	assert.Equal(t, protocol.StatusBadState, c.do("end-edit"))
	assert.Equal(t, protocol.StatusMalformed, c.do("create report x"))
	assert.Equal(t, protocol.StatusMalformed, c.do("create report 0"))
	assert.Equal(t, protocol.StatusMalformed, c.do("create ../etc 1"))
	assert.Equal(t, protocol.StatusMalformed, c.do("show"))

	require.Equal(t, protocol.StatusOK, c.do("create report 2"))
	assert.Equal(t, protocol.CreateExists, c.do("create report 2"))

	require.Equal(t, 1, c.do("edit report 1"))
	c.line()
	c.send("0")
	require.Equal(t, 2, c.status())
	c.section()
	c.line()

	assert.Equal(t, protocol.StatusBadState, c.do("edit report 2"))
	assert.Equal(t, protocol.StatusBadState, c.do("login alice pw"))
}

func TestSession_SectionErrors(t *testing.T) {
	svc := newServices(t, "alice")
	c := connect(t, svc)
	c.login("alice")
	require.Equal(t, protocol.StatusOK, c.do("create report 2"))

	for _, tc := range []struct {
		line string
		want int
	}{
		{"show report 3", protocol.ShowOutOfRange},
		{"show report 0", protocol.ShowOutOfRange},
		{"show report two", protocol.StatusMalformed},
		{"edit report 3", protocol.EditOutOfRange},
		{"edit report x", protocol.StatusMalformed},
	} {
		require.Equal(t, 1, c.do(tc.line), tc.line)
		require.Equal(t, "alice", c.line())
		c.send("0")
		assert.Equal(t, tc.want, c.status(), tc.line)
	}
}

func TestSession_DeclinedSelection(t *testing.T) {
	svc := newServices(t, "alice")
	c := connect(t, svc)
	c.login("alice")
	require.Equal(t, protocol.StatusOK, c.do("create report 1"))

	for _, choice := range []string{"7", "-1", "abc"} {
		require.Equal(t, 1, c.do("edit report 1"))
		c.line()
		c.send(choice)
	}
	// the session is still in sync and nothing got locked
	assert.Equal(t, StateAuthenticated, c.handler.State())
	require.Equal(t, 1, c.do("list"))
	for i := 0; i < 4; i++ {
		c.line()
	}
	assert.Equal(t, "Sections being edited: { }", c.line())
}

func TestSession_ShowWholeDocument(t *testing.T) {
	svc := newServices(t, "alice")
	c := connect(t, svc)
	c.login("alice")
	require.Equal(t, protocol.StatusOK, c.do("create report 3"))

	doc, _ := svc.Documents.Get(models.Handle{Name: "report", Owner: "alice"})
	for i := 1; i <= 3; i++ {
		text := fmt.Sprintf("part %d\n", i)
		require.NoError(t, svc.Documents.WriteSection(context.Background(), doc, i, strings.NewReader(text), int64(len(text))))
	}

	require.Equal(t, 1, c.do("show report"))
	c.line()
	c.send("0")
	require.Equal(t, 3, c.status())
	for i := 1; i <= 3; i++ {
		assert.Equal(t, fmt.Sprintf("part %d\n", i), c.section())
	}
}

func TestSession_ShareErrors(t *testing.T) {
	svc := newServices(t, "alice", "bob")
	c := connect(t, svc)
	c.login("alice")
	require.Equal(t, protocol.StatusOK, c.do("create report 1"))

	assert.Equal(t, protocol.ShareUnknownUser, c.do("share report ghost"))
	assert.Equal(t, protocol.ShareNoDocument, c.do("share missing bob"))
	assert.Equal(t, protocol.ShareAlreadyShared, c.do("share report alice"))
	require.Equal(t, protocol.StatusOK, c.do("share report bob"))
	assert.Equal(t, protocol.ShareAlreadyShared, c.do("share report bob"))
	assert.Equal(t, protocol.StatusMalformed, c.do("share report"))
}

func TestSession_LoginFailuresClose(t *testing.T) {
	svc := newServices(t, "alice")

	for _, tc := range []struct {
		line string
		want int
	}{
		{"login alice wrong", protocol.LoginWrongPassword},
		{"login nobody pw", protocol.LoginUnknownUser},
	} {
		c := connect(t, svc)
		assert.Equal(t, tc.want, c.do(tc.line))
		_, err := c.conn.ReadLine()
		assert.ErrorIs(t, err, io.EOF)
		c.waitClosed()
	}

	first := connect(t, svc)
	first.login("alice")

	second := connect(t, svc)
	assert.Equal(t, protocol.LoginAlreadyOnline, second.do("login alice pw"))
	second.waitClosed()

	// the first session is unaffected
	u, _ := svc.Users.Get("alice")
	assert.True(t, u.IsOnline())
	assert.Equal(t, protocol.StatusOK, first.do("create report 1"))
}

func TestSession_Logout(t *testing.T) {
	svc := newServices(t, "alice")
	c := connect(t, svc)
	c.login("alice")

	assert.Equal(t, protocol.StatusOK, c.do("logout"))
	c.waitClosed()

	u, _ := svc.Users.Get("alice")
	assert.False(t, u.IsOnline())

	again := connect(t, svc)
	again.login("alice")
}

func TestSession_RecoveryReleasesLockOnce(t *testing.T) {
	svc := newServices(t, "alice", "bob")
	handle := models.Handle{Name: "report", Owner: "alice"}

	alice := connect(t, svc)
	alice.login("alice")
	require.Equal(t, protocol.StatusOK, alice.do("create report 2"))
	require.Equal(t, protocol.StatusOK, alice.do("share report bob"))

	require.Equal(t, 1, alice.do("edit report 2"))
	alice.line()
	alice.send("0")
	require.Equal(t, 2, alice.status())
	alice.section()
	alice.line()

	// drop the connection while editing
	alice.raw.Close()
	alice.waitClosed()

	doc, _ := svc.Documents.Get(handle)
	assert.False(t, doc.IsLocked(2))
	u, _ := svc.Users.Get("alice")
	assert.False(t, u.IsOnline())

	// someone else takes the lock; a repeated recovery must not touch it
	bob := connect(t, svc)
	bob.login("bob")
	require.Equal(t, 1, bob.do("edit report 2"))
	bob.line()
	bob.send("0")
	require.Equal(t, 2, bob.status())
	bob.section()
	bob.line()

	alice.handler.Close(context.Background())
	doc, _ = svc.Documents.Get(handle)
	assert.True(t, doc.IsLocked(2))
	assert.Equal(t, StateClosed, alice.handler.State())
}

func TestSession_DisconnectMidUpload(t *testing.T) {
	svc := newServices(t, "alice")
	handle := models.Handle{Name: "report", Owner: "alice"}

	c := connect(t, svc)
	c.login("alice")
	require.Equal(t, protocol.StatusOK, c.do("create report 1"))
	require.Equal(t, 1, c.do("edit report 1"))
	c.line()
	c.send("0")
	require.Equal(t, 1, c.status())
	c.section()
	c.line()

	require.Equal(t, 1, c.do("end-edit"))
	c.send("100")
	_, err := c.raw.Write([]byte("only a few bytes"))
	require.NoError(t, err)
	c.raw.Close()
	c.waitClosed()

	doc, _ := svc.Documents.Get(handle)
	assert.False(t, doc.IsLocked(1))

	rc, size, err := svc.Documents.OpenSection(context.Background(), doc, 1)
	require.NoError(t, err)
	rc.Close()
	assert.Zero(t, size, "a broken upload must not replace the section")
}

// editWithRetry runs the edit exchange the way the client driver does,
// retrying on contention. It reports the final status.
func editWithRetry(c *protocol.Conn, doc string, section int) (int, error) {
	for attempt := 0; attempt < 5; attempt++ {
		if err := c.WriteLine(fmt.Sprintf("edit %s %d", doc, section)); err != nil {
			return 0, err
		}
		n, err := c.ReadStatus()
		if err != nil {
			return 0, err
		}
		if n == protocol.StatusShareNotice {
			if n, err = c.ReadStatus(); err != nil {
				return 0, err
			}
		}
		if n != 1 {
			return n, fmt.Errorf("expected one candidate, got %d", n)
		}
		if _, err := c.ReadLine(); err != nil {
			return 0, err
		}
		if err := c.WriteLine("0"); err != nil {
			return 0, err
		}
		st, err := c.ReadStatus()
		if err != nil {
			return 0, err
		}
		if st == protocol.StatusContention {
			continue
		}
		if st > 0 {
			if _, err := c.ReceiveSection(io.Discard); err != nil {
				return 0, err
			}
			if _, err := c.ReadLine(); err != nil {
				return 0, err
			}
		}
		return st, nil
	}
	return protocol.StatusContention, nil
}

func TestSession_AtMostOneEditor(t *testing.T) {
	editors := []string{"u1", "u2", "u3", "u4", "u5", "u6", "u7", "u8"}
	svc := newServices(t, append([]string{"alice"}, editors...)...)

	alice := connect(t, svc)
	alice.login("alice")
	require.Equal(t, protocol.StatusOK, alice.do("create report 4"))
	for _, e := range editors {
		require.Equal(t, protocol.StatusOK, alice.do("share report "+e))
	}

	clients := make([]*testClient, len(editors))
	for i, e := range editors {
		clients[i] = connect(t, svc)
		clients[i].login(e)
	}

	results := make([]int, len(editors))
	errs := make([]error, len(editors))
	var wg sync.WaitGroup
	for i := range clients {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = editWithRetry(clients[i].conn, "report", 3)
		}(i)
	}
	wg.Wait()

	winners := 0
	for i, st := range results {
		require.NoError(t, errs[i])
		if st == 4 {
			winners++
			continue
		}
		assert.Equal(t, protocol.EditLocked, st)
	}
	assert.Equal(t, 1, winners)

	doc, _ := svc.Documents.Get(models.Handle{Name: "report", Owner: "alice"})
	assert.Equal(t, []int{3}, doc.LockedSections())
}

func TestSession_LockRoundTripKeepsOtherSections(t *testing.T) {
	svc := newServices(t, "alice", "bob")
	handle := models.Handle{Name: "report", Owner: "alice"}

	alice := connect(t, svc)
	alice.login("alice")
	require.Equal(t, protocol.StatusOK, alice.do("create report 3"))
	require.Equal(t, protocol.StatusOK, alice.do("share report bob"))

	bob := connect(t, svc)
	bob.login("bob")
	st, err := editWithRetry(bob.conn, "report", 1)
	require.NoError(t, err)
	require.Equal(t, 3, st)

	st, err = editWithRetry(alice.conn, "report", 2)
	require.NoError(t, err)
	require.Equal(t, 3, st)

	require.Equal(t, 3, alice.do("end-edit"))
	require.NoError(t, alice.conn.SendSection(strings.NewReader("x"), 1))
	require.Equal(t, 1, alice.do("list"))
	for i := 0; i < 5; i++ {
		alice.line()
	}

	doc, _ := svc.Documents.Get(handle)
	assert.Equal(t, []bool{true, false, false}, doc.Locks)
	assert.Equal(t, StateAuthenticated, alice.handler.State())
}
