package errs

// Database error codes. Dense i32 namespace, [1..999] domain errors;
// only the subset this repo actually raises is reproduced here.
const (
	CodeUnsupportedParameter             int32 = 27
	CodeChecksumDoesntMatch              int32 = 40
	CodeIllegalColumn                    int32 = 44
	CodeCannotReadAllData                int32 = 33
	CodeLogicalError                     int32 = 49
	CodeArgumentOutOfBound               int32 = 69
	CodeBadGet                           int32 = 170
	CodeBadTypeOfField                   int32 = 31
	CodeNumberOfArgumentsDoesntMatch     int32 = 42
	CodeIllegalTypeOfArgument            int32 = 43
	CodeSyntaxError                      int32 = 62
	CodePositionOutOfBound               int32 = 127
	CodeTooMuchRows                      int32 = 158
	CodeMemoryLimitExceeded              int32 = 241
	CodeNotEnoughSpace                   int32 = 243
	CodeCorruptedData                    int32 = 49
	CodeUnexpectedEndOfFile              int32 = 39
	CodeCannotMergeDifferentAggVariants  int32 = 246
	CodeIllegalTypeOfColumnForFilter     int32 = 652
	CodeRaftError                        int32 = 1001
)

// Keeper error codes (ZooKeeper's own Error enum; negative by convention).
const (
	ZOK                     int32 = 0
	ZNONODE                 int32 = -101
	ZNODEEXISTS             int32 = -110
	ZBADVERSION             int32 = -103
	ZNOTEMPTY               int32 = -111
	ZRUNTIMEINCONSISTENCY   int32 = -2
	ZOPERATIONTIMEOUT       int32 = -7
	ZCONNECTIONLOSS         int32 = -4
	ZSESSIONEXPIRED         int32 = -112
	ZAUTHFAILED             int32 = -115
	ZNOAUTH                 int32 = -102
	ZMARSHALLINGERROR       int32 = -5
)
