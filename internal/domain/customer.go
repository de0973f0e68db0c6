package domain

import (
	"slices"
	"strings"
)

// unassignedCustomerID помечает клиента, которому ещё не присвоен идентификатор.
const unassignedCustomerID int64 = -1

// Customer: частное лицо, которое создаёт заказы и владеет ими.
type Customer struct {
	id int64
	// firstName: все части имени, кроме фамилии; "" означает "не задано".
	firstName string
	// lastName: фамилия; "" означает "не задано".
	lastName string
	contacts []string
}

// NewCustomer создаёт клиента без идентификатора и имени.
func NewCustomer() *Customer {
	return &Customer{id: unassignedCustomerID}
}

// NewCustomerWithName создаёт клиента из имени одной строкой, например "Eric Meyer".
func NewCustomerWithName(name string) *Customer {
	return NewCustomer().SetName(name)
}

// ID возвращает идентификатор клиента; -1, если он ещё не присвоен.
func (c *Customer) ID() int64 {
	return c.id
}

// HasID сообщает, присвоен ли клиенту идентификатор.
func (c *Customer) HasID() bool {
	return c.id != unassignedCustomerID
}

// SetID присваивает идентификатор ровно один раз. Отрицательные значения
// и повторное присваивание игнорируются.
func (c *Customer) SetID(id int64) *Customer {
	if id >= 0 && c.id == unassignedCustomerID {
		c.id = id
	}
	return c
}

// Name возвращает имя в формате "lastName, firstName" или "lastName",
// если firstName пустое.
func (c *Customer) Name() string {
	if c.firstName == "" {
		return c.lastName
	}
	return c.lastName + ", " + c.firstName
}

func (c *Customer) FirstName() string {
	return c.firstName
}

func (c *Customer) LastName() string {
	return c.lastName
}

// SetName разбивает имя по пробелам: последний токен считается фамилией,
// предыдущие через пробел составляют имя. Пустые токены в конце отбрасываются.
func (c *Customer) SetName(name string) *Customer {
	parts := strings.Split(name, " ")
	for len(parts) > 1 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	c.lastName = parts[len(parts)-1]
	c.firstName = strings.Join(parts[:len(parts)-1], " ")
	return c
}

// SetNameParts задаёт имя и фамилию по отдельности.
func (c *Customer) SetNameParts(first, last string) *Customer {
	c.firstName = first
	c.lastName = last
	return c
}

// ContactsCount возвращает количество контактов клиента.
func (c *Customer) ContactsCount() int {
	return len(c.contacts)
}

// Contacts возвращает копию списка контактов в порядке добавления.
func (c *Customer) Contacts() []string {
	return slices.Clone(c.contacts)
}

// AddContact добавляет контакт. Пустые строки и дубликаты игнорируются.
func (c *Customer) AddContact(contact string) *Customer {
	if contact != "" && !slices.Contains(c.contacts, contact) {
		c.contacts = append(c.contacts, contact)
	}
	return c
}

// DeleteContact удаляет i-й контакт; индекс вне [0, count) ничего не меняет.
func (c *Customer) DeleteContact(i int) {
	if i >= 0 && i < len(c.contacts) {
		c.contacts = slices.Delete(c.contacts, i, i+1)
	}
}

// DeleteAllContacts удаляет все контакты.
func (c *Customer) DeleteAllContacts() {
	c.contacts = nil
}
