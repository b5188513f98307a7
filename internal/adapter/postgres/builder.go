package postgres

import "github.com/Masterminds/squirrel"

// Builder is the statement builder shared by repositories, using PostgreSQL
// $N placeholders.
var Builder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
