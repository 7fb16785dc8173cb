package operators

import "github.com/vvksh/SimpleDB/dberrors"

var errExhausted = dberrors.NewNoSuchElement("operator: no more tuples")
