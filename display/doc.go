// Package display supervises the virtual-display process chain that
// gives headless browser sessions a remotely viewable screen.
//
// Four stages start in fixed order: the display server, a window
// manager, the remote frame server, and a web bridge. The display
// server and frame server are hard dependencies; a failure there aborts
// the chain. The window manager and web bridge are soft: a failure is
// logged and the chain continues without them.
package display
