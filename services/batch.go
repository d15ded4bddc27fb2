package services

type BatchItemResult struct {
	ID      string    `json:"id"`
	Success bool      `json:"success"`
	Kind    ErrorKind `json:"kind,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// BatchResult lists one outcome per requested item, in request order.
type BatchResult struct {
	Items     []BatchItemResult `json:"items"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
}

func (r *BatchResult) add(id string, err error) {
	item := BatchItemResult{ID: id, Success: err == nil}
	if err != nil {
		item.Kind = KindOf(err)
		item.Error = err.Error()
		r.Failed++
	} else {
		r.Succeeded++
	}
	r.Items = append(r.Items, item)
}

// Err reports a partial batch failure when any item failed.
func (r BatchResult) Err() error {
	if r.Failed == 0 {
		return nil
	}
	return newAppErrorWithData(KindPartialBatchFailure, "some items failed", r, nil)
}

// runBatch processes ids one at a time, in order, and never stops early.
func runBatch(ids []string, fn func(id string) error) BatchResult {
	result := BatchResult{Items: make([]BatchItemResult, 0, len(ids))}
	for _, id := range ids {
		result.add(id, fn(id))
	}
	return result
}
