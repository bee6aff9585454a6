package config

// sphinxFormatConstraint teaches the model the expected docstring format.
// Kept as one block so users replacing constraints via flags swap it out
// wholesale.
const sphinxFormatConstraint = `Strictly respond in Sphinx documentation format.
Here's an example that uses sphinx:

"""Summary line.

:param [ParamName]: [ParamDescription], defaults to [DefaultParamVal]
:type [ParamName]: [ParamType](, optional)
...
:raises [ErrorType]: [ErrorDescription]
...
:return: [ReturnDescription]
:rtype: [ReturnType]
"""

A pair of :param: and :type: directive options must be used for each parameter we wish to document. The :raises: option is used to describe any errors that are raised by the code, while the :return: and :rtype: options are used to describe any values returned by our code.

Note that the ... notation has been used above to indicate repetition and should not be used when generating actual docstrings.

If there're no params, ignore the params section.
If there're no returned objects, ignore the :return.`

// DefaultConstraints returns the constraints applied when the user
// supplies none.
func DefaultConstraints() []string {
	return []string{
		"Don't respond with anything other than valid code",
		sphinxFormatConstraint,
		"Single line docstrings should not end with any spacing",
	}
}

// dunderMethods is the attribute surface of a plain Python object. Units
// with these names are skipped: __init__ and friends are documented at
// the class level, not per method.
var dunderMethods = []string{
	"__class__",
	"__delattr__",
	"__dict__",
	"__dir__",
	"__doc__",
	"__eq__",
	"__format__",
	"__ge__",
	"__getattribute__",
	"__getstate__",
	"__gt__",
	"__hash__",
	"__init__",
	"__init_subclass__",
	"__le__",
	"__lt__",
	"__module__",
	"__ne__",
	"__new__",
	"__reduce__",
	"__reduce_ex__",
	"__repr__",
	"__setattr__",
	"__sizeof__",
	"__str__",
	"__subclasshook__",
	"__weakref__",
}

// DefaultIgnorePatterns returns the unit names skipped by default.
func DefaultIgnorePatterns() []string {
	return append([]string(nil), dunderMethods...)
}
