package domain

import "testing"

func TestRole(t *testing.T) {
	primary := PrimaryRole()
	if primary.IsReplica() || primary.Name() != "master" {
		t.Errorf("PrimaryRole() = %v (%s)", primary, primary.Name())
	}

	replica := ReplicaRole("127.0.0.1:6379")
	if !replica.IsReplica() || replica.Name() != "slave" {
		t.Errorf("ReplicaRole() = %v (%s)", replica, replica.Name())
	}
	if replica.String() != "replica of 127.0.0.1:6379" {
		t.Errorf("String() = %q", replica.String())
	}
}

func TestParseReplicaOf(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"localhost 6379", "localhost:6379", false},
		{"  10.0.0.1   7000 ", "10.0.0.1:7000", false},
		{"::1 6380", "[::1]:6380", false},
		{"localhost", "", true},
		{"localhost:6379", "", true},
		{"localhost 0", "", true},
		{"localhost 70000", "", true},
		{"localhost abc", "", true},
		{"a b c", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseReplicaOf(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseReplicaOf(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseReplicaOf(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
