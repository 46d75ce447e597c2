package main

import "testing"

func TestValidateUpload(t *testing.T) {
	cases := []struct {
		name  string
		size  int
		valid bool
	}{
		{"recording.wav", 1024, true},
		{"RECORDING.WAV", 1024, true},
		{"untitled", 1024, true},
		{"recording.wav", 0, false},
		{"recording.mp3", 1024, false},
		{"notes.txt", 1024, false},
		{"recording.wav", maxUploadSize + 1, false},
	}
	for _, c := range cases {
		err := ValidateUpload(c.name, c.size)
		if c.valid && err != nil {
			t.Errorf("ValidateUpload(%q, %d): unexpected error %v", c.name, c.size, err)
		}
		if !c.valid && err == nil {
			t.Errorf("ValidateUpload(%q, %d): expected an error", c.name, c.size)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	cases := []struct {
		password string
		valid    bool
	}{
		{"Str0ngEnough", true},
		{"", false},
		{"short1A", false},
		{"alllowercase1", false},
		{"ALLUPPERCASE1", false},
		{"NoNumbersHere", false},
	}
	for _, c := range cases {
		err := ValidatePassword(c.password)
		if c.valid && err != nil {
			t.Errorf("ValidatePassword(%q): unexpected error %v", c.password, err)
		}
		if !c.valid && err == nil {
			t.Errorf("ValidatePassword(%q): expected an error", c.password)
		}
	}
}
