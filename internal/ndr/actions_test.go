package ndr

import (
	"reflect"
	"testing"
)

func TestDeriveActions_PausedIgnoresActive(t *testing.T) {
	f := File{Status: "Paused", Active: false}

	got := DeriveActions(f)
	want := []Action{ActionResume, ActionDelete}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("paused inactive actions = %v, want %v", got, want)
	}
}

func TestDeriveActions_CompletedActive(t *testing.T) {
	f := File{Status: "Completed", Active: true, Path: `C:\data\out.xml`}

	got := DeriveActions(f)
	want := []Action{ActionDownload, ActionDelete, ActionRestart}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("completed active actions = %v, want %v", got, want)
	}
}

func TestDeriveActions_CompletedWithErrorArtifacts(t *testing.T) {
	f := File{
		Status:    "Completed with errors",
		Active:    true,
		Path:      `C:\data\out.xml`,
		ErrorPath: `C:\data\errors.txt`,
		ErrorList: "a,b",
	}

	got := DeriveActions(f)
	want := []Action{ActionDownload, ActionDownloadErrorLog, ActionDownloadErrorCSV, ActionDelete, ActionRestart}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("completed-with-errors actions = %v, want %v", got, want)
	}
}

func TestDeriveActions_CompletedInactiveHasNoLifecycleActions(t *testing.T) {
	f := File{Status: "Completed", Active: false}

	if got := DeriveActions(f); len(got) != 0 {
		t.Fatalf("expected no actions, got %v", got)
	}
}

func TestDeriveActions_FailedActive(t *testing.T) {
	f := File{Status: "Failed", Active: true, Path: `C:\data\partial.xml`, HasError: true, ErrorPath: `C:\data\errors.txt`}

	got := DeriveActions(f)
	want := []Action{ActionRestart, ActionDownload, ActionDownloadErrorLog, ActionDelete}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("failed active actions = %v, want %v", got, want)
	}
}

func TestDeriveActions_ProcessingExposesPauseOnly(t *testing.T) {
	f := File{Status: "Processing", Active: true}

	got := DeriveActions(f)
	want := []Action{ActionPause}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("processing actions = %v, want %v", got, want)
	}
}

func TestDeriveActions_DialogActionsIndependentOfLifecycle(t *testing.T) {
	f := File{Status: "Processing", Active: true, NDRBatchIDs: "b1,b2", ErrorLogsPulled: "yes"}

	got := DeriveActions(f)
	want := []Action{ActionPause, ActionViewBatches, ActionViewErrorLogs}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("actions = %v, want %v", got, want)
	}

	f.ErrorLogsPulled = "no"
	got = DeriveActions(f)
	want = []Action{ActionPause, ActionViewBatches}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("actions = %v, want %v", got, want)
	}
}

func TestBatchIDs(t *testing.T) {
	if got := BatchIDs("  "); got != nil {
		t.Fatalf("expected nil for blank input, got %v", got)
	}
	got := BatchIDs("b1,b2,b3")
	if len(got) != 3 || got[0] != "b1" || got[2] != "b3" {
		t.Fatalf("unexpected batch ids: %v", got)
	}
}
