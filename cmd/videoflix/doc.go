// Command videoflix manages the video catalog and runs transcode workers.
//
// Catalog commands (ingest, import, list, show, edit, delete, retag, requeue,
// jobs) open the SQLite catalog directly. The worker command runs the
// long-lived transcode pool until interrupted.
package main
