/*
Package pdf reads, builds and writes the objects stored in a PDF file.

A PDF file is essentially an append-only, random-access, persistent
object store. Documents are built from the objects the file can manage.

Methods for random access:
  1. Cross-Reference Table (§7.5.4) and File Trailer (§7.5.5)
  2. Cross-Reference Streams (§7.5.8) (since PDF-1.5)
  3. Hybrid (§7.5.8.4) (since PDF-1.5)

When none of these lead to a usable catalog, the file is scanned for
indirect object headers and the cross-reference data is rebuilt.

Files are always written whole, never as incremental updates. Only the
objects reachable from the trailer are written, with dictionary keys in
sorted order, so equal documents serialize to equal bytes.
*/
package pdf
