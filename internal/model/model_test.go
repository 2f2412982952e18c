package model

import "testing"

func TestFieldType_IsChoice(t *testing.T) {
	t.Parallel()

	choice := []FieldType{FieldSingleChoiceList, FieldSingleChoice, FieldMultipleChoice}
	for _, ft := range choice {
		if !ft.IsChoice() {
			t.Fatalf("%s must be a choice type", ft)
		}
	}
	plain := []FieldType{FieldShortText, FieldLongText, FieldDate, FieldNumber, FieldEmail}
	for _, ft := range plain {
		if ft.IsChoice() {
			t.Fatalf("%s must not own options", ft)
		}
	}
}

func TestNewPagination(t *testing.T) {
	t.Parallel()

	p := NewPagination(Page{Page: 2, Limit: 20}, 41)
	if p.TotalPages != 3 || p.Total != 41 || p.Page != 2 {
		t.Fatalf("unexpected pagination: %+v", p)
	}
	if (Page{Page: 3, Limit: 10}).Offset() != 20 {
		t.Fatalf("offset mismatch")
	}
	if NewPagination(Page{Page: 1, Limit: 0}, 5).TotalPages != 0 {
		t.Fatalf("zero limit must not divide")
	}
}

func TestUser_Public(t *testing.T) {
	t.Parallel()

	u := User{ID: 1, Username: "ana", PasswordHash: "$2a$10$x", OfflineDigest: "abc"}
	p := u.Public()
	if p.PasswordHash != "" || p.OfflineDigest != "" {
		t.Fatalf("credentials leaked: %+v", p)
	}
	if u.PasswordHash == "" {
		t.Fatalf("original must stay intact")
	}
}

func TestPrincipal_IsAdmin(t *testing.T) {
	t.Parallel()
	if !(Principal{Role: RoleAdministrator}).IsAdmin() {
		t.Fatalf("administrator not recognized")
	}
	if !(Principal{Role: "administrator"}).IsAdmin() {
		t.Fatalf("role match must ignore case")
	}
	if (Principal{Role: RoleLocalManager}).IsAdmin() {
		t.Fatalf("manager treated as admin")
	}
}
