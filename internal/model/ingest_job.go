package model

// IngestJob is the payload queued for the document ingest worker: the
// already-extracted text of a document waiting to be chunked and embedded.
// ConversationID is optional; when set, the worker links the document to the
// conversation once it reaches READY.
type IngestJob struct {
	DocumentID     string `json:"document_id"`
	ConversationID string `json:"conversation_id,omitempty"`
	Text           string `json:"text"`
}
