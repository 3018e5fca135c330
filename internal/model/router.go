package model

// Router is the navigation surface the view layer renders from.
type Router interface {
	Navigate(route string) error
	Replace(route string) error
}
