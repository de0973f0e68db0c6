package domain_test

import (
	"testing"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

func TestCustomerSetID_OnlyOnce(t *testing.T) {
	c := domain.NewCustomer()
	if c.HasID() {
		t.Fatal("new customer must not have id")
	}
	if c.ID() != -1 {
		t.Fatalf("expected unassigned id -1, got %d", c.ID())
	}

	c.SetID(-5)
	if c.HasID() {
		t.Fatal("negative id must be ignored")
	}

	c.SetID(0).SetID(42)
	if c.ID() != 0 {
		t.Fatalf("expected id 0 to stick, got %d", c.ID())
	}
}

func TestCustomerName_RoundTrip(t *testing.T) {
	cases := []struct {
		in    string
		first string
		last  string
		name  string
	}{
		{in: "Eric Meyer", first: "Eric", last: "Meyer", name: "Meyer, Eric"},
		{in: "Anne Lena Bayer", first: "Anne Lena", last: "Bayer", name: "Bayer, Anne Lena"},
		{in: "Schulz", first: "", last: "Schulz", name: "Schulz"},
		{in: "", first: "", last: "", name: ""},
		{in: "Eric ", first: "", last: "Eric", name: "Eric"},
		{in: "Eric Meyer  ", first: "Eric", last: "Meyer", name: "Meyer, Eric"},
		{in: "   ", first: "", last: "", name: ""},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			c := domain.NewCustomerWithName(tc.in)
			if c.FirstName() != tc.first {
				t.Fatalf("expected first %q, got %q", tc.first, c.FirstName())
			}
			if c.LastName() != tc.last {
				t.Fatalf("expected last %q, got %q", tc.last, c.LastName())
			}
			if c.Name() != tc.name {
				t.Fatalf("expected name %q, got %q", tc.name, c.Name())
			}
		})
	}
}

func TestCustomerSetNameParts(t *testing.T) {
	c := domain.NewCustomer().SetNameParts("Joline", "Hofmann")
	if got := c.Name(); got != "Hofmann, Joline" {
		t.Fatalf("unexpected name: %q", got)
	}
}

func TestCustomerContacts(t *testing.T) {
	c := domain.NewCustomer()
	c.AddContact("eric@gmail.com").
		AddContact("").
		AddContact("(030) 3945-642298").
		AddContact("eric@gmail.com").
		AddContact("fax: (030) 3945-642299")

	if c.ContactsCount() != 3 {
		t.Fatalf("expected 3 contacts, got %d", c.ContactsCount())
	}
	contacts := c.Contacts()
	if contacts[0] != "eric@gmail.com" || contacts[2] != "fax: (030) 3945-642299" {
		t.Fatalf("unexpected contacts order: %v", contacts)
	}

	// Копия не должна влиять на клиента.
	contacts[0] = "changed"
	if c.Contacts()[0] != "eric@gmail.com" {
		t.Fatal("Contacts must return a copy")
	}

	c.DeleteContact(5)
	c.DeleteContact(-1)
	if c.ContactsCount() != 3 {
		t.Fatalf("out of range delete must be a no-op, got %d contacts", c.ContactsCount())
	}

	c.DeleteContact(1)
	if got := c.Contacts(); len(got) != 2 || got[1] != "fax: (030) 3945-642299" {
		t.Fatalf("unexpected contacts after delete: %v", got)
	}

	c.DeleteAllContacts()
	if c.ContactsCount() != 0 {
		t.Fatalf("expected no contacts, got %d", c.ContactsCount())
	}
}
