package depot

import "github.com/TheBitDrifter/table"

type factory struct{}

var Factory factory

func (f factory) NewWorld(opts ...Option) *World {
	return newWorld(opts...)
}

func (f factory) NewQuery() *Query {
	return newQuery()
}

func (f factory) NewCursor(query *Query, w *World) *Cursor {
	return newCursor(query, w)
}

// NewWorld is Factory.NewWorld.
func NewWorld(opts ...Option) *World {
	return newWorld(opts...)
}

func FactoryNewComponent[T any]() AccessibleComponent[T] {
	return AccessibleComponent[T]{
		Component: table.FactoryNewElementType[T](),
	}
}

func FactoryNewTag[T any]() Tag {
	return Tag{
		Component: table.FactoryNewElementType[T](),
	}
}

func FactoryNewResource[T any]() Resource[T] {
	return Resource[T]{
		token: table.FactoryNewElementType[T](),
	}
}
