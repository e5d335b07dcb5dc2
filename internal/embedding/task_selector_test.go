package embedding

import "testing"

func TestSelectTaskType(t *testing.T) {
	if got := SelectTaskType(ContentTypeQuery); got != "RETRIEVAL_QUERY" {
		t.Fatalf("SelectTaskType(query)=%q, want RETRIEVAL_QUERY", got)
	}
	if got := SelectTaskType(ContentTypeChunk); got != "RETRIEVAL_DOCUMENT" {
		t.Fatalf("SelectTaskType(chunk)=%q, want RETRIEVAL_DOCUMENT", got)
	}
}

func TestDetectContentType(t *testing.T) {
	if got := DetectContentType("how do I reset the checkpoint confidence?"); got != ContentTypeQuery {
		t.Fatalf("DetectContentType(question)=%q, want %q", got, ContentTypeQuery)
	}
	if got := DetectContentType("What is the sacred boost factor"); got != ContentTypeQuery {
		t.Fatalf("DetectContentType(what-prefix)=%q, want %q", got, ContentTypeQuery)
	}

	chunk := "The cyclic controller derives position from the model output at each step, compressing history at checkpoints 3, 6, and 9."
	if got := DetectContentType(chunk); got != ContentTypeChunk {
		t.Fatalf("DetectContentType(chunk)=%q, want %q", got, ContentTypeChunk)
	}
}

func TestGetOptimalTaskType(t *testing.T) {
	if got := GetOptimalTaskType("why does the energy formula weight strength at 0.4?"); got != "RETRIEVAL_QUERY" {
		t.Fatalf("GetOptimalTaskType(query)=%q, want RETRIEVAL_QUERY", got)
	}
	if got := GetOptimalTaskType("Checkpoint positions are 3, 6, and 9 in the doubling cycle."); got != "RETRIEVAL_DOCUMENT" {
		t.Fatalf("GetOptimalTaskType(chunk)=%q, want RETRIEVAL_DOCUMENT", got)
	}
}
