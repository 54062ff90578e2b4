package auth

import "testing"

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "081234567890", want: "6281234567890"},
		{in: "+62 812-3456-7890", want: "6281234567890"},
		{in: "6281234567890", want: "6281234567890"},
		{in: "0812 3456 7890", want: "6281234567890"},
		{in: "12345", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "9981234567890", wantErr: true},
	}
	for _, tc := range tests {
		got, err := NormalizePhone(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("NormalizePhone(%q) = %q, want error", tc.in, got)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("NormalizePhone(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}
