package transport

import (
	"net"
	"testing"

	"github.com/pkg/sftp"
	"github.com/stretchr/testify/require"
)

func newMemSFTP(t *testing.T) *SFTP {
	t.Helper()
	serverConn, clientConn := net.Pipe()

	server := sftp.NewRequestServer(serverConn, sftp.InMemHandler())
	go server.Serve()

	client, err := sftp.NewClientPipe(clientConn, clientConn)
	require.NoError(t, err)

	s := NewSFTP(client, "/backups")
	t.Cleanup(func() {
		s.Close()
		server.Close()
	})
	return s
}

func TestSFTP_Contract(t *testing.T) {
	exerciseTransport(t, newMemSFTP(t))
}
