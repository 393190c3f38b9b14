//go:build !unix

package chat

import "syscall"

func reuseAddr(_, _ string, _ syscall.RawConn) error {
	return nil
}
