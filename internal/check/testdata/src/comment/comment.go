package comment

// This comment is short.
/* xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx */ /* want "Comment too long" */
var value = 1

//go:generate echo this directive is allowed to be longer than the limit of the check
