// Package cli provides the interactive command-line client of the editing
// server.
//
// The REPL accepts:
//
//	register <user> [password]   create an account (registration service)
//	login <user> [password]      connect and authenticate
//	logout                       disconnect
//	create <doc> <sections>      create a document
//	share <doc> <user>           make user a co-author
//	show <doc> [section]         download one section or the whole document
//	list                         list accessible documents
//	edit <doc> <section>         lock and download a section, join its chat
//	end-edit                     upload the edited section and release it
//	send <text>                  post to the document chat
//	receive                      print the chat messages received so far
//	exit | quit                  leave the program
//
// A password left out of register or login is read from the terminal
// without echo.
package cli
