/*
Package backbone runs the DRP backbone against a prepared queue directory.

The backbone is the IDL pipeline engine. Consume launches it with the test
startup file and a single drpTestSingle directive naming the queue, echoes
its merged stdout/stderr line by line while it runs, and afterwards checks
that every entry which was waiting before the run has a done marker and no
failed marker.

The OSIRIS root is part of Config. Reading the OSIRIS_ROOT environment
variable is left to the caller; the command line tool does it through its
flag definitions.
*/
package backbone
