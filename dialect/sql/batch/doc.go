// Package batch groups compiled statements and executes them on a
// dedicated connection, optionally inside a transaction.
//
//	groups, err := batch.NewGrouper(100, 1000).Group(stmts)
//	if err != nil {
//		return err
//	}
//	res, err := batch.NewExecutor(drv).Execute(ctx, groups, true)
//
// A group marked MustAffectRows that affects no row rolls back a
// transactional execution, which then reports zero affected rows. Outside a
// transaction the same condition is tolerated and the rows of every group
// are summed.
package batch
