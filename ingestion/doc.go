// Package ingestion stores extracted documents in workspaces.
//
// The Pipeline type manages the upload workflow:
//   - Extracting text from PDF, text, markdown and HTML files
//   - Cutting the text to the stored-content budget
//   - Adding the document to its workspace
//
// Batches of files are extracted concurrently on a worker pool and stored in
// the order given, one document at a time, so one bad file does not fail the
// rest of the batch.
package ingestion
