// Package printing delivers kitchen tickets to printers.
//
// TicketRenderer formats a print job as fixed-width text for thermal printers.
// SocketSink writes the rendered ticket to the printer's raw TCP port
// (usually 9100). LogSink writes it to the logger instead, for sites without
// networked printers and for development.
package printing
