package domain

// Repository описывает хранилище сущностей одного типа с ключом K.
type Repository[K comparable, E any] interface {
	// FindByID возвращает сущность и true либо нулевое значение и false,
	// если ключ не найден. Отсутствие ключа ошибкой не считается.
	FindByID(id K) (E, bool, error)
	// FindAll возвращает все сущности; порядок не определён.
	FindAll() ([]E, error)
	// Count возвращает количество сохранённых сущностей.
	Count() (int, error)
	// Save вставляет или перезаписывает запись по идентификатору сущности.
	// Возвращает ErrInvalidEntity, если идентификатор не присвоен.
	Save(entity E) (E, error)
}

// CustomerRepository хранит клиентов по числовому идентификатору.
type CustomerRepository = Repository[int64, *Customer]

// ArticleRepository хранит артикулы по строковому идентификатору.
type ArticleRepository = Repository[string, *Article]

// OrderRepository хранит заказы по строковому идентификатору.
type OrderRepository = Repository[string, *Order]
