package entities

// ProcessingRecord is the last known processing outcome for one object key.
// Error is set only when the last operation on the key failed.
type ProcessingRecord struct {
	ObjectKey string  `json:"object_key" dynamodbav:"object_key"`
	Processed int     `json:"processed" dynamodbav:"processed"` // 0 or 1
	Error     *string `json:"error,omitempty" dynamodbav:"error,omitempty"`
}

func InProgress(key string) ProcessingRecord {
	return ProcessingRecord{ObjectKey: key, Processed: 0}
}

func Done(key string) ProcessingRecord {
	return ProcessingRecord{ObjectKey: key, Processed: 1}
}

func Failed(key string, err error) ProcessingRecord {
	msg := err.Error()
	return ProcessingRecord{ObjectKey: key, Processed: 0, Error: &msg}
}
