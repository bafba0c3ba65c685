/*
Package finconfig reads and writes finorch's three INI configuration files
with gopkg.in/ini.v1: client.ini ([client] port=<int>, the last port a local
client bound), api.ini ([<callsign-or-host>] key=<pem>, per-session SSH
keys), and wrapper.ini ([wrapper] port=<int>, written by the client before
launching a wrapper so it knows where to dial back). Every write is a
whole-file rewrite, matching spec.md §5's "configuration files are
read-modified-written with whole-file rewrites."
*/
package finconfig
