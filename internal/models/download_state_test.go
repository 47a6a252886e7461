package models

import "testing"

func TestDownloadStateTransitions(t *testing.T) {
	cases := []struct {
		from, to DownloadState
		want     bool
	}{
		{DownloadStateNone, DownloadStateDownloading, true},
		{DownloadStateNone, DownloadStateDownloaded, false},
		{DownloadStateDownloading, DownloadStateDownloaded, true},
		{DownloadStateDownloading, DownloadStateNone, true},
		{DownloadStateDownloaded, DownloadStateDownloading, false},
		{DownloadStateDownloaded, DownloadStateNone, false},
	}

	for _, c := range cases {
		if got := c.from.CanTransition(c.to); got != c.want {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestDownloadStateIsTerminal(t *testing.T) {
	if !DownloadStateNone.IsTerminal() {
		t.Error("not_downloaded should be terminal")
	}
	if !DownloadStateDownloaded.IsTerminal() {
		t.Error("downloaded should be terminal")
	}
	if DownloadStateDownloading.IsTerminal() {
		t.Error("downloading should not be terminal")
	}
}
