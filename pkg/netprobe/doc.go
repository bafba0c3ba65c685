/*
Package netprobe polls a TCP address until it accepts a connection or a
context is cancelled. The wrapper uses it to wait for the client it was
launched under to be reachable, mirroring the busy-poll-with-short-sleep
loop the original Python implementation used around socket.connect_ex.
LocalTransport does not use it: it makes a single dial-and-probe attempt.
*/
package netprobe
