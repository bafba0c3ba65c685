/*
Package flog provides structured logging for finorch using zerolog.

Both the client daemon and the wrapper install a rotating file logger before
doing anything else (InitClient / InitWrapper), so that a crash during
startup is still diagnosable — mirroring the Python original's
prepare_log_file() functions. Log rotation (10MiB per file, 5 backups) is
handled by lumberjack.
*/
package flog
