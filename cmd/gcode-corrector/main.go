// gcode-corrector removes blobs and zits at the corners of FDM prints by
// trimming the extrusion at the ends of G-code segments that meet a
// neighbouring extrusion at an angle.
//
// Usage:
//
//	gcode-corrector correct part.gcode [-o out.gcode] [--config corrector.cfg]
//	gcode-corrector inspect part.gcode
//	gcode-corrector config init [corrector.cfg]
//	gcode-corrector serve [--addr :7130] [--redis redis://localhost:6379/0]
//	gcode-corrector version [--check]
//
// Environment:
//
//	GCODE_CORRECTOR_LOG_LEVEL   debug, info, warn or error
//	GCODE_CORRECTOR_LOG_FORMAT  text or json
//	GCODE_CORRECTOR_LOG_CALLER  include caller file:line when set to 1
//	NO_COLOR                    disable coloured output
//
// Exit status is 2 for configuration errors, 3 for unreadable input or
// unwritable output and 1 for anything else.
package main

func main() {
	Execute()
}
