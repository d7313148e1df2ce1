package docker

// harness is the Python program each worker runs. It reads the submission
// from stdin and execs it under a restricted __builtins__ allow-list:
// output, core numeric/string/collection operations, and the common
// exception types — nothing that touches files, processes, or scope
// introspection. An uncaught exception prints its traceback to stderr and
// exits 1, which the parent classifies as a crash.
//
// The harness itself uses exec/compile; those names are denylisted for
// submissions, not for us.
const harness = `import sys, traceback

source = sys.stdin.read()

allowed = (
    "print", "len", "range", "list", "dict", "set", "tuple", "str",
    "int", "float", "bool", "abs", "min", "max", "sum", "sorted",
    "reversed", "enumerate", "zip", "map", "filter", "round", "divmod",
    "pow", "isinstance", "type", "repr", "chr", "ord", "all", "any",
    "iter", "next", "frozenset", "format",
    "Exception", "BaseException", "ArithmeticError", "ValueError",
    "TypeError", "IndexError", "KeyError", "NameError", "AttributeError",
    "ZeroDivisionError", "StopIteration", "RuntimeError",
)
safe_globals = {
    "__builtins__": {name: getattr(__builtins__, name) for name in allowed},
    "__name__": "__main__",
}

try:
    exec(compile(source, "<submission>", "exec"), safe_globals)
except BaseException:
    traceback.print_exc()
    sys.exit(1)
`
