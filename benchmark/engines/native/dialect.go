package native

import (
	"strings"

	"github.com/lib/pq"
)

type query int

const (
	qCreate query = iota
	qClear
	qInsert
	qFetchAll
	qFetchSingle
	qUpdateByID
	qUpdateByName
	qUpdateAll
	qUpdateByAgeRange
	qUpdateByPattern
	qIncrementAge
	qAppendName
	qVacuum
	qVacuumFull
	qSize
)

// prepared lists the queries turned into statements when the backend is not scoped.
var prepared = []query{
	qClear, qInsert, qFetchAll, qFetchSingle, qUpdateByID, qUpdateByName, qUpdateAll,
	qUpdateByAgeRange, qUpdateByPattern, qIncrementAge, qAppendName,
}

// dialect holds the SQL text of one database. Every update takes (name, age, ...)
// as its leading arguments, and every placeholder list follows that order.
type dialect struct {
	driver  string
	queries map[query]string
	// multiple builds the "update by ids" statement, whose shape depends on len(ids).
	multiple func(name string, age int, ids []int64) (string, []any)
}

func questionMarks(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func inList(name string, age int, ids []int64) (string, []any) {
	args := make([]any, 0, len(ids)+2)
	args = append(args, name, age)
	for _, id := range ids {
		args = append(args, id)
	}
	return "update person set name = ?, age = ? where id in (" + questionMarks(len(ids)) + ")", args
}

// sqlite is shared by the modernc and mattn drivers. LIKE is ASCII case-insensitive.
func sqliteDialect(driver string) *dialect {
	return &dialect{
		driver: driver,
		queries: map[query]string{
			qCreate:           "create table if not exists person(id integer primary key, name text not null, age integer not null)",
			qClear:            "delete from person",
			qInsert:           "insert into person(id, name, age) values (?, ?, ?)",
			qFetchAll:         "select id, name, age from person",
			qFetchSingle:      "select id, name, age from person where id = ?",
			qUpdateByID:       "update person set name = ?, age = ? where id = ?",
			qUpdateByName:     "update person set name = ?, age = ? where id = (select min(id) from person where name = ?)",
			qUpdateAll:        "update person set name = ?, age = ?",
			qUpdateByAgeRange: "update person set name = ?, age = ? where age between ? and ?",
			qUpdateByPattern:  "update person set name = ?, age = ? where name like ?",
			qIncrementAge:     "update person set age = age + ?",
			qAppendName:       "update person set name = name || ?",
			qVacuum:           "vacuum",
			qVacuumFull:       "vacuum",
			qSize:             "select page_count * page_size from pragma_page_count(), pragma_page_size()",
		},
		multiple: inList,
	}
}

// postgres passes id sets as a single array parameter. LIKE is case-sensitive.
var postgresDialect = &dialect{
	driver: "postgres",
	queries: map[query]string{
		qCreate:           "create table if not exists person(id bigint primary key, name varchar not null, age int not null)",
		qClear:            "truncate person",
		qInsert:           "insert into person(id, name, age) values ($1, $2, $3)",
		qFetchAll:         "select id, name, age from person",
		qFetchSingle:      "select id, name, age from person where id = $1",
		qUpdateByID:       "update person set name = $1, age = $2 where id = $3",
		qUpdateByName:     "update person set name = $1, age = $2 where id = (select min(id) from person where name = $3)",
		qUpdateAll:        "update person set name = $1, age = $2",
		qUpdateByAgeRange: "update person set name = $1, age = $2 where age between $3 and $4",
		qUpdateByPattern:  "update person set name = $1, age = $2 where name like $3",
		qIncrementAge:     "update person set age = age + $1",
		qAppendName:       "update person set name = name || $1",
		qVacuum:           "vacuum analyze person",
		qVacuumFull:       "vacuum full analyze person",
		qSize:             "select pg_total_relation_size('person')",
	},
	multiple: func(name string, age int, ids []int64) (string, []any) {
		return "update person set name = $1, age = $2 where id = any($3)", []any{name, age, pq.Array(ids)}
	},
}

// mysql cannot reference the updated table in a subquery, so the single update by
// name orders and limits instead. LIKE follows the column collation, which is
// case-insensitive by default.
var mysqlDialect = &dialect{
	driver: "mysql",
	queries: map[query]string{
		qCreate:           "create table if not exists person(id bigint primary key, name varchar(255) not null, age int not null)",
		qClear:            "truncate table person",
		qInsert:           "insert into person(id, name, age) values (?, ?, ?)",
		qFetchAll:         "select id, name, age from person",
		qFetchSingle:      "select id, name, age from person where id = ?",
		qUpdateByID:       "update person set name = ?, age = ? where id = ?",
		qUpdateByName:     "update person set name = ?, age = ? where name = ? order by id limit 1",
		qUpdateAll:        "update person set name = ?, age = ?",
		qUpdateByAgeRange: "update person set name = ?, age = ? where age between ? and ?",
		qUpdateByPattern:  "update person set name = ?, age = ? where name like ?",
		qIncrementAge:     "update person set age = age + ?",
		qAppendName:       "update person set name = concat(name, ?)",
		qVacuum:           "analyze table person",
		qVacuumFull:       "optimize table person",
		qSize: `select coalesce(sum(data_length + index_length), 0) from information_schema.tables
			where table_schema = database() and table_name = 'person'`,
	},
	multiple: inList,
}
