package errors

// Category helpers shared by the resolver and the CLI layer. They inspect
// the whole error chain so wrapped enhanced errors still classify.

// CategoryOf returns the category of the first enhanced error in the chain,
// or CategoryGeneric when none is found.
func CategoryOf(err error) ErrorCategory {
	var ee *EnhancedError
	if As(err, &ee) {
		return ee.Category
	}
	var ce CategorizedError
	if As(err, &ce) {
		return ce.ErrorCategory()
	}
	return CategoryGeneric
}

// IsCategory reports whether err carries the given category.
func IsCategory(err error, category ErrorCategory) bool {
	return CategoryOf(err) == category
}

// IsNotFound reports whether err represents a missing resource.
func IsNotFound(err error) bool {
	return IsCategory(err, CategoryNotFound)
}

// IsRateLimited reports whether err represents provider throttling.
func IsRateLimited(err error) bool {
	return IsCategory(err, CategoryRateLimit)
}

// IsMalformed reports whether err represents an unparseable provider payload.
func IsMalformed(err error) bool {
	return IsCategory(err, CategoryMalformed)
}
