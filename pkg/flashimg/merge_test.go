// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Halcyon Vision

package flashimg

import (
	"bytes"
	"testing"
)

func TestMerge_Deterministic(t *testing.T) {
	l := defaultLayout()
	backup := buildImage(l, 0xB0)
	candidate := buildImage(l, 0xCA)

	m1, err := Merge(backup, candidate)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	m2, err := Merge(backup, candidate)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if !bytes.Equal(m1, m2) {
		t.Error("identical inputs produced different merged images")
	}
	if len(m1) != FlashSize {
		t.Errorf("merged image length %d, expected %d", len(m1), FlashSize)
	}
}

func TestMerge_PreservesBackupTables(t *testing.T) {
	l := defaultLayout()
	backup := buildImage(l, 0xB0)
	candidate := buildImage(l, 0xCA)

	merged, err := Merge(backup, candidate)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	info, err := Parse(backup)
	if err != nil {
		t.Fatalf("Parse(backup) failed: %v", err)
	}

	for _, s := range []Section{info.ReadWrite, info.ReadOnly} {
		for i, tbl := range s.Tables {
			size := s.TableSize(i)
			got := merged[tbl.Offset : tbl.Offset+size]
			want := backup[tbl.Offset : tbl.Offset+size]
			if !bytes.Equal(got, want) {
				t.Errorf("table at 0x%X (size 0x%X) not preserved from backup", tbl.Offset, size)
			}
		}
	}
}

func TestMerge_CarriesCandidateAppCode(t *testing.T) {
	l := defaultLayout()
	backup := buildImage(l, 0xB0)
	candidate := buildImage(l, 0xCA)

	merged, err := Merge(backup, candidate)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	info, err := Parse(candidate)
	if err != nil {
		t.Fatalf("Parse(candidate) failed: %v", err)
	}

	for _, s := range []Section{info.ReadWrite, info.ReadOnly} {
		got := merged[s.Offset : s.Offset+s.AppSize]
		want := candidate[s.Offset : s.Offset+s.AppSize]
		if !bytes.Equal(got, want) {
			t.Errorf("app region at 0x%X (size 0x%X) not taken from candidate", s.Offset, s.AppSize)
		}
	}
}

func TestMerge_PreservesBackupHeaderBytes(t *testing.T) {
	// The info header lives inside the read-only table region, so the merged
	// image must carry the backup's header bytes.
	l := defaultLayout()
	backup := buildImage(l, 0xB0)
	candidate := buildImage(l, 0xCA)

	// Distinguishable header-adjacent byte in the read-only table region.
	backup[HeaderOffset-1] = 0x77
	candidate[HeaderOffset-1] = 0x88

	merged, err := Merge(backup, candidate)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if merged[HeaderOffset-1] != 0x77 {
		t.Errorf("read-only table region byte came from candidate, expected backup")
	}
}

func TestMerge_RejectsBadInputs(t *testing.T) {
	l := defaultLayout()
	good := buildImage(l, 0)

	if _, err := Merge(good[:FlashSize-1], good); err == nil {
		t.Error("expected error for short backup")
	}
	if _, err := Merge(good, good[:FlashSize-1]); err == nil {
		t.Error("expected error for short candidate")
	}

	bad := buildImage(l, 0)
	writeTOC(bad, l.rwStart, l.rwSize, l.rwSize+1, l.rwTables) // app size too big
	if _, err := Merge(bad, good); err == nil {
		t.Error("expected error for inconsistent backup layout")
	}
	if _, err := Merge(good, bad); err == nil {
		t.Error("expected error for inconsistent candidate layout")
	}
}
