package analytics

import "testing"

func TestParseUserID(t *testing.T) {
	tests := []struct {
		in      string
		want    UserID
		wantErr bool
	}{
		{"65a1b2c3d4e5f60718293a4b", "65a1b2c3d4e5f60718293a4b", false},
		{"65A1B2C3D4E5F60718293A4B", "65a1b2c3d4e5f60718293a4b", false},
		{"000000000000000000000000", "000000000000000000000000", false},
		{"", "", true},
		{"65a1b2c3d4e5f60718293a4", "", true},
		{"65a1b2c3d4e5f60718293a4bb", "", true},
		{"g5a1b2c3d4e5f60718293a4b", "", true},
		{" 65a1b2c3d4e5f60718293a4b", "", true},
	}
	for _, tt := range tests {
		got, err := ParseUserID(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseUserID(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseUserID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUserIDObjectID(t *testing.T) {
	id, err := ParseUserID(testUser)
	if err != nil {
		t.Fatal(err)
	}
	if id.ObjectID().Hex() != testUser {
		t.Errorf("ObjectID = %s", id.ObjectID().Hex())
	}
}
